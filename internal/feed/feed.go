package feed

import "context"

// Kind is the row-level change kind reported by the backing store.
type Kind string

const (
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

// Event signals that a recipient's notification rows may have changed. The
// payload carries no row data on purpose: consumers re-fetch the authoritative
// window instead of applying deltas, so a malformed or partial payload still
// results in a correct refresh.
type Event struct {
	Kind        Kind   `json:"kind"`
	RecipientID string `json:"recipientId"`
}

// Handler consumes one change event.
type Handler func(ctx context.Context, ev Event)

// Subscriber delivers store change events scoped to one recipient's rows.
// Subscribe blocks until ctx is done or the transport fails; implementations
// must not invoke the handler after Subscribe returns.
type Subscriber interface {
	Subscribe(ctx context.Context, recipientID string, handler Handler) error
	Close() error
}
