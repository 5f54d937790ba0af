package audit

import "context"

// Store defines the interface for persisting audit events.
type Store interface {
	SaveItemWritten(ctx context.Context, event *ItemWrittenEvent) error
	SaveItemDeleted(ctx context.Context, event *ItemDeletedEvent) error
	SaveItemExpired(ctx context.Context, event *ItemExpiredEvent) error
}
