package port

import "context"

// Mailer is the outbound notification collaborator. Delivery failures are
// non-fatal to the state transition that triggered the send; callers log and
// move on. Retry policy belongs to the implementation.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (deliveryID string, err error)
}
