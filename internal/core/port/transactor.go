package port

import "context"

// Transactor runs fn inside one storage transaction. Repositories called with
// the ctx passed to fn join that transaction; fn returning an error rolls the
// whole unit back. Used where a flow writes several rows that must land
// together (registration: user + profile + verification token).
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
