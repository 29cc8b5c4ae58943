// Package cart holds the cart state and the reconciliation engine that
// keeps the local persisted view consistent with the remote authoritative
// store under unreliable network conditions.
package cart

import (
	"time"

	"github.com/example/cart-sync/internal/catalog"
)

// Line is one product entry in a cart. LineID is assigned by the remote
// store once a line has synced; before that a locally added line carries a
// temporary timestamp-based id that the next successful sync replaces.
type Line struct {
	LineID    int64           `json:"line_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   catalog.Product `json:"product"`
}

// Snapshot is the serialized form of the cart kept in the slot store.
type Snapshot struct {
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

func indexByLineID(lines []Line, lineID int64) int {
	for i := range lines {
		if lines[i].LineID == lineID {
			return i
		}
	}
	return -1
}

func indexByProductID(lines []Line, productID int64) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// mergeLine folds one line into the list: an existing line for the same
// remote id or the same product is replaced in place, anything else is
// appended. Keeping at most one line per product is the cart's core
// invariant; duplicate adds sum quantities instead of creating new lines.
func mergeLine(lines []Line, line Line) []Line {
	if i := indexByLineID(lines, line.LineID); i >= 0 {
		lines[i] = line
		return lines
	}
	if i := indexByProductID(lines, line.ProductID); i >= 0 {
		lines[i] = line
		return lines
	}
	return append(lines, line)
}

// reconcile replaces the current lines with the incoming authoritative set
// while preserving the relative order of lines the user is already looking
// at. Surviving lines keep their existing positions (with incoming data),
// new lines append in incoming order, vanished lines drop.
func reconcile(existing, incoming []Line) []Line {
	byProduct := make(map[int64]int, len(incoming))
	for i := range incoming {
		if _, ok := byProduct[incoming[i].ProductID]; !ok {
			byProduct[incoming[i].ProductID] = i
		}
	}

	out := make([]Line, 0, len(incoming))
	taken := make([]bool, len(incoming))
	for _, old := range existing {
		if i, ok := byProduct[old.ProductID]; ok && !taken[i] {
			out = append(out, incoming[i])
			taken[i] = true
		}
	}
	for i := range incoming {
		if !taken[i] {
			out = append(out, incoming[i])
		}
	}
	return out
}

func copyLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
