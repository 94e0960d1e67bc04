// internal/domain/pricing/customization.go
package pricing

import (
	"fmt"
	"strings"

	"github.com/bella-notte/ordering-backend/internal/domain/menu"
)

// FormatCustomization renders the selected options as a short label
func FormatCustomization(c menu.Customization) string {
	var parts []string
	if c.Size != "" && c.Size != menu.SizeRegular {
		parts = append(parts, fmt.Sprintf("Size: %s", c.Size))
	}
	if c.ExtraCheese {
		parts = append(parts, "Extra cheese")
	}
	if len(c.ExtraToppings) > 0 {
		parts = append(parts, fmt.Sprintf("Toppings: %s", strings.Join(c.ExtraToppings, ", ")))
	}
	if c.SpiceLevel != "" {
		parts = append(parts, fmt.Sprintf("Spice: %s", c.SpiceLevel))
	}
	if c.Notes != "" {
		parts = append(parts, fmt.Sprintf("Note: %s", c.Notes))
	}
	return strings.Join(parts, ", ")
}
