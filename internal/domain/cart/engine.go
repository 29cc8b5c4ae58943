package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/cart-sync/internal/catalog"
	"github.com/example/cart-sync/internal/infrastructure/remote"
	"github.com/example/cart-sync/internal/infrastructure/store"
	"github.com/example/cart-sync/internal/pricing"
)

var (
	ErrAuthRequired    = errors.New("authentication required")
	ErrInvalidProduct  = errors.New("product_id is required")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrUpdateInFlight  = errors.New("quantity update already in flight")
)

// RemoteCart is the slice of the remote client the engine needs.
type RemoteCart interface {
	FetchCart(ctx context.Context, token string) ([]remote.Line, error)
	AddItem(ctx context.Context, token string, productID int64, quantity int) (*remote.Line, error)
	UpdateQuantity(ctx context.Context, token string, lineID int64, quantity int) (*remote.Line, error)
	RemoveLine(ctx context.Context, token string, lineID int64) error
	ClearCart(ctx context.Context, token string) error
}

// TokenProvider reports whether a usable session token is present. The
// engine never stores or refreshes tokens; it only reads them to decide
// whether remote operations are worth attempting.
type TokenProvider interface {
	Token(ctx context.Context) (string, bool)
}

// Engine reconciles the in-memory cart with the remote store and the local
// persistence slot. Mutations apply optimistically, sync remotely, and fall
// back to pure-local operation when authentication or the network is
// unavailable. There is no connected/disconnected mode: every operation
// decides independently based on token presence and the remote outcome.
type Engine struct {
	mu       sync.Mutex
	lines    []Line
	store    store.Interface
	remote   RemoteCart
	tokens   TokenProvider
	resolver *catalog.Resolver

	// updating is the re-entrancy guard for quantity updates: a second
	// update arriving while one is in flight is dropped, not queued, so
	// optimistic-apply/rollback sequences on the same line never interleave.
	updating atomic.Bool
}

func NewEngine(st store.Interface, rc RemoteCart, tp TokenProvider, resolver *catalog.Resolver) *Engine {
	return &Engine{store: st, remote: rc, tokens: tp, resolver: resolver}
}

// Lines returns a copy of the current cart lines.
func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyLines(e.lines)
}

// Load brings the cart up to date. Without a token it serves the persisted
// snapshot. With one it fetches the authoritative cart, normalizes it
// (filling missing or zero-priced product data from the fallback catalog),
// replaces the lines wholesale while preserving their existing relative
// order, and persists. A failed fetch falls back to the persisted snapshot;
// the user still sees a usable, possibly stale, cart.
func (e *Engine) Load(ctx context.Context) ([]Line, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	token, ok := e.tokens.Token(ctx)
	if !ok {
		e.lines = e.loadPersisted(ctx)
		return copyLines(e.lines), nil
	}

	remoteLines, err := e.remote.FetchCart(ctx, token)
	if err != nil {
		log.Printf("[Cart] Remote fetch failed, serving persisted snapshot: %v", err)
		e.lines = e.loadPersisted(ctx)
		return copyLines(e.lines), nil
	}

	e.lines = reconcile(e.lines, e.normalizeAll(remoteLines))
	e.persist(ctx)
	return copyLines(e.lines), nil
}

// Add puts a product in the cart. It requires a session token; without one
// it returns ErrAuthRequired and leaves the state untouched so the caller
// can trigger authentication. When the remote add fails the product is added
// locally from the fallback catalog instead; that line is not durable
// server-side and the next successful Load overwrites it.
func (e *Engine) Add(ctx context.Context, productID int64, quantity int) error {
	if productID <= 0 {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	token, ok := e.tokens.Token(ctx)
	if !ok {
		return ErrAuthRequired
	}

	line, err := e.remote.AddItem(ctx, token, productID, quantity)
	if err != nil {
		log.Printf("[Cart] Remote add failed, adding product %d locally: %v", productID, err)
		e.localAdd(productID, quantity)
		e.persist(ctx)
		return nil
	}

	e.lines = mergeLine(e.lines, e.normalizeLine(*line))
	e.persist(ctx)

	// Re-sync the full cart so server-assigned line ids replace any
	// temporary ones before the next mutation targets them.
	remoteLines, err := e.remote.FetchCart(ctx, token)
	if err != nil {
		log.Printf("[Cart] Post-add re-sync failed: %v", err)
		return nil
	}
	e.lines = reconcile(e.lines, e.normalizeAll(remoteLines))
	e.persist(ctx)
	return nil
}

// UpdateQuantity sets a line's quantity. Quantities below 1 delegate to
// Remove. The new quantity applies optimistically before the remote call; a
// remote failure applies the precomputed inverse patch and the failure is
// returned to the caller, never absorbed, because the user is looking at a
// number that just changed back.
func (e *Engine) UpdateQuantity(ctx context.Context, lineID int64, quantity int) error {
	if quantity < 1 {
		return e.Remove(ctx, lineID)
	}

	if !e.updating.CompareAndSwap(false, true) {
		return ErrUpdateInFlight
	}
	defer e.updating.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := indexByLineID(e.lines, lineID)
	if idx < 0 {
		return ErrLineNotFound
	}

	token, ok := e.tokens.Token(ctx)
	if !ok {
		return ErrAuthRequired
	}

	prev := e.lines[idx].Quantity
	e.lines[idx].Quantity = quantity
	e.persist(ctx)

	line, err := e.remote.UpdateQuantity(ctx, token, lineID, quantity)
	if err != nil {
		if i := indexByLineID(e.lines, lineID); i >= 0 {
			e.lines[i].Quantity = prev
		}
		e.persist(ctx)
		return fmt.Errorf("quantity update rolled back: %w", err)
	}

	if line != nil {
		e.lines = mergeLine(e.lines, e.normalizeLine(*line))
	}
	e.persist(ctx)
	return nil
}

// Remove drops a line. The remote delete is best-effort: whatever the remote
// outcome, the line disappears locally, because the UI must not keep showing
// a line the user asked to remove. This is deliberately asymmetric with
// UpdateQuantity's rollback.
func (e *Engine) Remove(ctx context.Context, lineID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeLocked(ctx, lineID)
}

func (e *Engine) removeLocked(ctx context.Context, lineID int64) error {
	idx := indexByLineID(e.lines, lineID)
	if idx < 0 {
		return ErrLineNotFound
	}

	if token, ok := e.tokens.Token(ctx); ok {
		if err := e.remote.RemoveLine(ctx, token, lineID); err != nil {
			log.Printf("[Cart] Remote remove of line %d failed, dropping locally anyway: %v", lineID, err)
		}
	}

	e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
	e.persist(ctx)
	return nil
}

// Clear empties the cart. The bulk-clear endpoint has a known server quirk:
// the clear route collides with the delete-by-id route and comes back as a
// path validation error. When that happens each line is deleted individually
// in parallel and the cart reloads from the remote once all deletes settle.
// An unreachable remote clears locally.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	token, ok := e.tokens.Token(ctx)
	if !ok {
		e.lines = nil
		e.persist(ctx)
		return nil
	}

	err := e.remote.ClearCart(ctx, token)
	if err == nil {
		e.lines = nil
		e.persist(ctx)
		return nil
	}

	if errors.Is(err, remote.ErrMalformedPath) {
		log.Printf("[Cart] Bulk clear rejected by server, deleting %d lines individually", len(e.lines))
		var g errgroup.Group
		for _, ln := range e.lines {
			lineID := ln.LineID
			g.Go(func() error {
				return e.remote.RemoveLine(ctx, token, lineID)
			})
		}
		if werr := g.Wait(); werr != nil {
			log.Printf("[Cart] Per-line clear left remote lines behind: %v", werr)
		}
		if remoteLines, ferr := e.remote.FetchCart(ctx, token); ferr == nil {
			e.lines = reconcile(e.lines, e.normalizeAll(remoteLines))
		} else {
			e.lines = nil
		}
		e.persist(ctx)
		return nil
	}

	log.Printf("[Cart] Remote clear failed, clearing locally: %v", err)
	e.lines = nil
	e.persist(ctx)
	return nil
}

// localAdd applies the offline fallback: bump the quantity of an existing
// line for the product, or append a new line with fallback product data and
// a temporary id.
func (e *Engine) localAdd(productID int64, quantity int) {
	if i := indexByProductID(e.lines, productID); i >= 0 {
		e.lines[i].Quantity += quantity
		return
	}
	e.lines = append(e.lines, Line{
		LineID:    tempLineID(),
		ProductID: productID,
		Quantity:  quantity,
		Product:   e.resolver.Resolve(productID),
	})
}

// tempLineID generates a local line id for lines that have not synced yet.
func tempLineID() int64 {
	return time.Now().UnixMilli()
}

// normalizeLine converts a wire line into canonical form. A missing embedded
// product, or one with a zero or unparseable price, is replaced from the
// fallback catalog; everything else passes through the single product
// constructor so prices always come out canonical.
func (e *Engine) normalizeLine(rl remote.Line) Line {
	var product catalog.Product
	if rl.Product == nil || pricing.Normalize(rl.Product.Price) == 0 {
		product = e.resolver.Resolve(rl.ProductID)
	} else {
		p := rl.Product
		product = catalog.New(rl.ProductID, p.Name, p.Price, p.ImageURL, p.Description, p.Category, p.InStock)
	}
	return Line{
		LineID:    rl.ID,
		ProductID: rl.ProductID,
		Quantity:  rl.Quantity,
		Product:   product,
	}
}

func (e *Engine) normalizeAll(remoteLines []remote.Line) []Line {
	lines := make([]Line, 0, len(remoteLines))
	for _, rl := range remoteLines {
		lines = append(lines, e.normalizeLine(rl))
	}
	return lines
}

// persist writes the current lines to the slot store. Persistence failures
// degrade the restart experience but never fail the operation.
func (e *Engine) persist(ctx context.Context) {
	snapshot := Snapshot{Lines: e.lines, UpdatedAt: time.Now()}
	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("[Cart] Failed to encode snapshot: %v", err)
		return
	}
	if err := e.store.Put(ctx, store.CartKey, data); err != nil {
		log.Printf("[Cart] Failed to persist snapshot: %v", err)
	}
}

// loadPersisted reads the last-known snapshot, returning no lines when the
// slot is empty or unreadable.
func (e *Engine) loadPersisted(ctx context.Context) []Line {
	data, ok, err := e.store.Get(ctx, store.CartKey)
	if err != nil {
		log.Printf("[Cart] Failed to read persisted snapshot: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Printf("[Cart] Failed to parse persisted snapshot: %v", err)
		return nil
	}
	return snapshot.Lines
}
