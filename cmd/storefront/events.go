package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/gaarage/storefront/internal/event"
	pkgkafka "github.com/gaarage/storefront/pkg/kafka"
)

func (c *cli) eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Storefront activity events",
	}

	var (
		topics []string
		group  string
	)
	watch := &cobra.Command{
		Use:         "watch",
		Short:       "Print cart and order events as they are published",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !c.cfg.EventsEnabled() {
				return errors.New("KAFKA_BROKERS is not set")
			}
			return c.watch(cmd.Context(), cmd.OutOrStdout(), topics, group)
		},
	}
	watch.Flags().StringSliceVar(&topics, "topic",
		[]string{event.TopicCartUpdated, event.TopicCartCleared, event.TopicOrderPlaced}, "topics to tail")
	watch.Flags().StringVar(&group, "group", "", "consumer group; empty tails from the newest offset")

	cmd.AddCommand(watch)
	return cmd
}

func (c *cli) watch(ctx context.Context, out io.Writer, topics []string, group string) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ReachabilityTimeout)
	err := pkgkafka.PingBrokers(pingCtx, c.cfg.KafkaBrokers)
	cancel()
	if err != nil {
		return fmt.Errorf("events watch: %w", err)
	}

	var mu sync.Mutex
	handle := func(_ context.Context, e *pkgkafka.Event) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintln(out, event.Summary(e))
		return err
	}

	errs := make(chan error, len(topics))
	var wg sync.WaitGroup
	for _, topic := range topics {
		w := pkgkafka.NewWatcher(pkgkafka.WatcherConfig{
			Brokers: c.cfg.KafkaBrokers,
			GroupID: group,
			Topic:   topic,
		}, handle, c.logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- w.Run(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	var joined error
	for err := range errs {
		joined = errors.Join(joined, err)
	}
	return joined
}
