package event

import (
	"fmt"

	pkgkafka "github.com/gaarage/storefront/pkg/kafka"
)

// Summary renders a one-line description of a storefront event.
func Summary(e *pkgkafka.Event) string {
	stamp := e.OccurredAt.Format("15:04:05")

	switch e.Type {
	case TopicCartUpdated:
		var data CartUpdatedData
		if err := e.Decode(&data); err != nil {
			break
		}
		return fmt.Sprintf("%s cart updated  %-12s items=%d total=%s", stamp, data.Identity, data.ItemCount, data.Total.StringFixed(2))
	case TopicCartCleared:
		var data CartClearedData
		if err := e.Decode(&data); err != nil {
			break
		}
		return fmt.Sprintf("%s cart cleared  %s", stamp, data.Identity)
	case TopicOrderPlaced:
		var data OrderPlacedData
		if err := e.Decode(&data); err != nil {
			break
		}
		return fmt.Sprintf("%s order placed %-12s order=%d total=%s", stamp, data.Identity, data.OrderID, data.Total.StringFixed(2))
	}
	return fmt.Sprintf("%s %s key=%s", stamp, e.Type, e.Key)
}
