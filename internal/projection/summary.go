// Package projection derives aggregate views from cart state. Summarize is
// a pure function: the composition layer recomputes it after every engine
// transition, and it never mutates the lines it reads.
package projection

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/example/cart-sync/internal/domain/cart"
)

// Summary is the aggregate view of a cart.
type Summary struct {
	ItemCount int     `json:"item_count"`
	Subtotal  float64 `json:"subtotal"`
}

// Summarize computes the item count and subtotal over the given lines using
// canonical prices.
func Summarize(lines []cart.Line) Summary {
	var s Summary
	for _, ln := range lines {
		s.ItemCount += ln.Quantity
		s.Subtotal += float64(ln.Quantity) * ln.Product.Price
	}
	return s
}

// thinSpace is the group separator the storefront renders prices with.
const thinSpace = " "

// FormatPrice renders a canonical price the way the storefront displays it:
// space-grouped rubles, comma-separated kopecks only when non-zero.
func FormatPrice(v float64) string {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	cents := int64(math.Round(v * 100))
	whole := cents / 100
	frac := cents % 100

	digits := strconv.FormatInt(whole, 10)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	out := strings.Join(groups, thinSpace)
	if frac != 0 {
		out += fmt.Sprintf(",%02d", frac)
	}
	return out + " ₽"
}
