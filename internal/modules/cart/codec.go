package cart

import (
	"encoding/json"
	"fmt"

	"github.com/georgemunganga/printa-storefront/internal/modules/storage"
)

// legacyItem is the unversioned layout: the whole product plus a qty.
type legacyItem struct {
	Product *struct {
		ID     string   `json:"id"`
		Title  string   `json:"title"`
		Price  float64  `json:"price"`
		Images []string `json:"images"`
	} `json:"product"`
	Qty int `json:"qty"`
}

func decodeSlot(slot storage.Slot) ([]Line, error) {
	switch slot.Version {
	case SlotVersion:
		var lines []Line
		if err := json.Unmarshal(slot.Data, &lines); err != nil {
			return nil, fmt.Errorf("decode cart v%d: %w", slot.Version, err)
		}
		return normalize(lines), nil
	case storage.LegacyVersion:
		var items []legacyItem
		if err := json.Unmarshal(slot.Data, &items); err != nil {
			return nil, fmt.Errorf("decode legacy cart: %w", err)
		}
		lines := make([]Line, 0, len(items))
		for _, it := range items {
			if it.Product == nil {
				continue
			}
			l := Line{
				ProductID: it.Product.ID,
				Quantity:  it.Qty,
				Title:     it.Product.Title,
				Price:     it.Product.Price,
			}
			if len(it.Product.Images) > 0 {
				l.Image = it.Product.Images[0]
			}
			lines = append(lines, l)
		}
		return normalize(lines), nil
	default:
		return nil, fmt.Errorf("unsupported cart slot version %d", slot.Version)
	}
}

// normalize enforces the cart invariants on data that did not come through the
// Store: one line per product id, 1 <= quantity <= MaxQuantity, first occurrence
// keeps its position.
func normalize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		if i, ok := pos[l.ProductID]; ok {
			out[i].Quantity = addQuantity(out[i].Quantity, l.Quantity)
			continue
		}
		l.Quantity = min(l.Quantity, MaxQuantity)
		pos[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}
