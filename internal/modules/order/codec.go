package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgemunganga/printa-storefront/internal/modules/storage"
)

// legacyOrder is the unversioned layout, with a display date instead of a timestamp.
type legacyOrder struct {
	ID    string `json:"id"`
	Items []struct {
		Title string  `json:"title"`
		Qty   int     `json:"qty"`
		Price float64 `json:"price"`
	} `json:"items"`
	Total  float64 `json:"total"`
	Date   string  `json:"date"`
	Status Status  `json:"status"`
}

// Layouts produced by toLocaleString in the locales the shop has been served in.
var legacyDateLayouts = []string{
	time.RFC3339,
	"1/2/2006, 3:04:05 PM",
	"2/1/2006, 3:04:05 pm",
	"02/01/2006, 15:04:05",
	"2006-01-02 15:04:05",
}

func decodeSlot(slot storage.Slot) ([]Order, error) {
	switch slot.Version {
	case SlotVersion:
		var orders []Order
		if err := json.Unmarshal(slot.Data, &orders); err != nil {
			return nil, fmt.Errorf("decode orders v%d: %w", slot.Version, err)
		}
		return normalize(orders), nil
	case storage.LegacyVersion:
		var legacy []legacyOrder
		if err := json.Unmarshal(slot.Data, &legacy); err != nil {
			return nil, fmt.Errorf("decode legacy orders: %w", err)
		}
		orders := make([]Order, 0, len(legacy))
		for _, lo := range legacy {
			o := Order{
				ID:        lo.ID,
				Total:     lo.Total,
				CreatedAt: legacyCreatedAt(lo.Date, lo.ID),
				Status:    lo.Status,
				Items:     make([]LineItem, 0, len(lo.Items)),
			}
			for _, it := range lo.Items {
				o.Items = append(o.Items, LineItem{Title: it.Title, Quantity: it.Qty, UnitPrice: it.Price})
			}
			orders = append(orders, o)
		}
		return normalize(orders), nil
	default:
		return nil, fmt.Errorf("unsupported orders slot version %d", slot.Version)
	}
}

// legacyCreatedAt parses the display date, falling back to the millis embedded in the id.
func legacyCreatedAt(date, id string) time.Time {
	for _, layout := range legacyDateLayouts {
		if t, err := time.ParseInLocation(layout, date, time.Local); err == nil {
			return t
		}
	}
	if ms, ok := parseID(id); ok {
		return time.UnixMilli(ms)
	}
	return time.Time{}
}

// normalize drops orders without an id, keeps the first of duplicated ids and
// resets unknown statuses to Pending.
func normalize(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		if o.ID == "" {
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		if !o.Status.Valid() {
			o.Status = StatusPending
		}
		if o.Items == nil {
			o.Items = []LineItem{}
		}
		out = append(out, o)
	}
	return out
}
