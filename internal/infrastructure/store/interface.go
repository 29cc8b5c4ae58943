package store

import "context"

// Fixed slot keys. The cart engine owns the snapshot slot; the session slot
// is written by whatever component handles authentication and only read here.
const (
	CartKey    = "cart_snapshot"
	SessionKey = "session"
)

// Interface is the durable key-value surface the cart engine persists
// through. The production implementation is the SQLite slot store; tests use
// the in-memory mock.
type Interface interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}
