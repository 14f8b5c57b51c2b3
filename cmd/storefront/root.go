package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gaarage/storefront/internal/app"
	"github.com/gaarage/storefront/internal/config"
	apperrors "github.com/gaarage/storefront/pkg/errors"
	"github.com/gaarage/storefront/pkg/logger"
)

// skipApp marks commands that only need configuration.
const skipApp = "storefront/skip-app"

type cli struct {
	loadConfig func() (*config.Config, error)
	logOutput  io.Writer

	cfg    *config.Config
	logger *slog.Logger
	app    *app.App
}

func newRootCmd(loadConfig func() (*config.Config, error), logOutput io.Writer) *cobra.Command {
	c := &cli{loadConfig: loadConfig, logOutput: logOutput}

	root := &cobra.Command{
		Use:               "storefront",
		Short:             "Browse the storefront, manage the cart and place orders",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		c.zonesCmd(),
		c.categoriesCmd(),
		c.productsCmd(),
		c.offersCmd(),
		c.heroCmd(),
		c.searchCmd(),
		c.cartCmd(),
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.profileCmd(),
		c.passwordCmd(),
		c.ordersCmd(),
		c.destinationsCmd(),
		c.checkoutCmd(),
		c.eventsCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger.NewWithWriter(app.ServiceName, logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}, c.logOutput)

	ctx := logger.WithCorrelationID(cmd.Context(), uuid.NewString())
	cmd.SetContext(ctx)

	if cmd.Annotations[skipApp] != "" || cmd.Name() == "help" {
		return nil
	}

	a, err := app.New(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return err
	}
	c.app = a
	return nil
}

// run wraps a command so the app is closed, and pending cart writes are
// drained, whether or not the command fails.
func (c *cli) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() { err = errors.Join(err, c.teardown()) }()
		return fn(cmd, args)
	}
}

func (c *cli) teardown() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// reportError prints err for a shopper: field messages for validation
// failures, the server's message for rejected requests.
func reportError(w io.Writer, err error) {
	if fields := apperrors.FieldErrors(err); len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s: %s\n", name, fields[name])
		}
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeConnectivity:
			fmt.Fprintln(w, "No internet connection. Check your network and try again.")
		case apperrors.CodeTimeout:
			fmt.Fprintln(w, "The server took too long to answer. Try again.")
		default:
			fmt.Fprintln(w, appErr.Message)
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.ValidationFailed(map[string]string{what: "must be a positive number"})
	}
	return id, nil
}
