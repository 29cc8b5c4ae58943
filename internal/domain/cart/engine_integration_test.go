package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cart-sync/internal/infrastructure/remote"
	"github.com/example/cart-sync/internal/infrastructure/store/mocks"
)

// backend is an in-memory stand-in for the storefront cart API, including
// its bulk-clear route collision: DELETE /cart/clear falls into the
// delete-by-id route and fails integer path parsing.
type backend struct {
	mu     sync.Mutex
	nextID int64
	lines  []remote.Line
}

func (b *backend) router() http.Handler {
	r := chi.NewRouter()

	r.Get("/cart", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b.lines)
	})

	r.Post("/cart", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ProductID int64 `json:"product_id"`
			Quantity  int   `json:"quantity"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.lines {
			if b.lines[i].ProductID == body.ProductID {
				b.lines[i].Quantity += body.Quantity
				_ = json.NewEncoder(w).Encode(b.lines[i])
				return
			}
		}
		b.nextID++
		line := remote.Line{ID: b.nextID, ProductID: body.ProductID, Quantity: body.Quantity}
		b.lines = append(b.lines, line)
		_ = json.NewEncoder(w).Encode(line)
	})

	r.Put("/cart/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		qty, _ := strconv.Atoi(req.URL.Query().Get("quantity"))
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.lines {
			if b.lines[i].ID == id {
				b.lines[i].Quantity = qty
				_ = json.NewEncoder(w).Encode(b.lines[i])
				return
			}
		}
		http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
	})

	r.Delete("/cart/{id}", func(w http.ResponseWriter, req *http.Request) {
		raw := chi.URLParam(req, "id")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"loc":["path","item_id"],"msg":"value is not a valid integer"}]}`))
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.lines {
			if b.lines[i].ID == id {
				b.lines = append(b.lines[:i], b.lines[i+1:]...)
				_, _ = w.Write([]byte(`{"message":"deleted"}`))
				return
			}
		}
		http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
	})

	return r
}

func TestEngine_EndToEnd_AgainstFakeBackend(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.router())
	defer srv.Close()

	st := mocks.NewMockSlotStore()
	client := remote.NewClient(srv.URL, 5*time.Second)
	e := NewEngine(st, client, staticTokens("tok"), newTestResolver(t))
	ctx := context.Background()

	// Add twice: one line, summed quantity, server-assigned id.
	require.NoError(t, e.Add(ctx, 1, 2))
	require.NoError(t, e.Add(ctx, 1, 3))
	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, int64(1), lines[0].LineID)
	// Embedded product data was filled from the fallback catalog since the
	// backend sends bare lines.
	assert.Equal(t, "Диван «Осло»", lines[0].Product.Name)

	// Second product, then a quantity update.
	require.NoError(t, e.Add(ctx, 3, 1))
	require.NoError(t, e.UpdateQuantity(ctx, e.Lines()[1].LineID, 4))
	assert.Equal(t, 4, e.Lines()[1].Quantity)

	// Clear goes through the per-line fallback because the backend rejects
	// the bulk route, and ends with an empty remote and local cart.
	require.NoError(t, e.Clear(ctx))
	assert.Empty(t, e.Lines())
	b.mu.Lock()
	assert.Empty(t, b.lines)
	b.mu.Unlock()

	// A fresh engine against the same store and backend loads empty too.
	fresh := NewEngine(st, client, staticTokens("tok"), newTestResolver(t))
	loaded, err := fresh.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestEngine_EndToEnd_OfflineThenReload(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.router())
	st := mocks.NewMockSlotStore()
	client := remote.NewClient(srv.URL, time.Second)
	e := NewEngine(st, client, staticTokens("tok"), newTestResolver(t))
	ctx := context.Background()

	require.NoError(t, e.Add(ctx, 1, 1))
	srv.Close()

	// Offline add lands locally with fallback product data.
	require.NoError(t, e.Add(ctx, 3, 2))
	lines := e.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Кровать «Люкс» 160x200", lines[1].Product.Name)

	// A reload while offline serves the persisted snapshot unchanged.
	reloaded, err := e.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, reloaded, 2)
}
