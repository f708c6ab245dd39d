package audit

import (
	"context"
	"time"
)

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher stamps and categorizes events before handing them to a Store.
type Publisher struct {
	store Store
	clock func() time.Time
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store, clock: time.Now}
}

// Emit records base. Missing timestamp and category are filled in.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = p.clock()
	}
	if base.Category == "" {
		base.Category = AuditEvent(base.Action).Category()
	}
	return p.store.Append(ctx, base)
}
