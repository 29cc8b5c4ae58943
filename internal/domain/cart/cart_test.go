package cart

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func productIDs(lines []Line) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, ln := range lines {
		ids = append(ids, ln.ProductID)
	}
	return ids
}

// ============================================
// mergeLine Tests
// ============================================

func TestMergeLine_AppendsNewProduct(t *testing.T) {
	lines := []Line{{LineID: 1, ProductID: 10, Quantity: 1}}

	out := mergeLine(lines, Line{LineID: 2, ProductID: 20, Quantity: 3})

	assert.Len(t, out, 2)
	assert.Equal(t, int64(20), out[1].ProductID)
}

func TestMergeLine_ReplacesByLineID(t *testing.T) {
	lines := []Line{{LineID: 1, ProductID: 10, Quantity: 1}}

	out := mergeLine(lines, Line{LineID: 1, ProductID: 10, Quantity: 5})

	assert.Len(t, out, 1)
	assert.Equal(t, 5, out[0].Quantity)
}

func TestMergeLine_ReplacesByProductID(t *testing.T) {
	// A locally added line has a temporary id; the synced line for the same
	// product must replace it, not duplicate it.
	lines := []Line{{LineID: 1756600000000, ProductID: 10, Quantity: 2}}

	out := mergeLine(lines, Line{LineID: 7, ProductID: 10, Quantity: 5})

	assert.Len(t, out, 1)
	assert.Equal(t, int64(7), out[0].LineID)
	assert.Equal(t, 5, out[0].Quantity)
}

// ============================================
// reconcile Tests
// ============================================

func TestReconcile_PreservesExistingOrder(t *testing.T) {
	existing := []Line{
		{LineID: 1, ProductID: 10},
		{LineID: 2, ProductID: 20},
		{LineID: 3, ProductID: 30},
	}
	incoming := []Line{
		{LineID: 3, ProductID: 30, Quantity: 1},
		{LineID: 1, ProductID: 10, Quantity: 2},
		{LineID: 2, ProductID: 20, Quantity: 3},
		{LineID: 4, ProductID: 40, Quantity: 4},
	}

	out := reconcile(existing, incoming)

	if diff := cmp.Diff([]int64{10, 20, 30, 40}, productIDs(out)); diff != "" {
		t.Errorf("line order mismatch (-want +got):\n%s", diff)
	}
	// Surviving lines carry the incoming data.
	assert.Equal(t, 2, out[0].Quantity)
}

func TestReconcile_DropsVanishedLines(t *testing.T) {
	existing := []Line{
		{LineID: 1, ProductID: 10},
		{LineID: 2, ProductID: 20},
	}
	incoming := []Line{
		{LineID: 2, ProductID: 20, Quantity: 9},
	}

	out := reconcile(existing, incoming)

	if diff := cmp.Diff([]int64{20}, productIDs(out)); diff != "" {
		t.Errorf("line order mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_EmptyExisting(t *testing.T) {
	incoming := []Line{
		{LineID: 1, ProductID: 10},
		{LineID: 2, ProductID: 20},
	}

	out := reconcile(nil, incoming)

	if diff := cmp.Diff([]int64{10, 20}, productIDs(out)); diff != "" {
		t.Errorf("line order mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_EmptyIncoming(t *testing.T) {
	existing := []Line{{LineID: 1, ProductID: 10}}

	out := reconcile(existing, nil)

	assert.Empty(t, out)
}
