package store

import (
	"context"

	"github.com/serroba/vault-demo-go/internal/audit"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of audit.Store that logs events. Used
// when no postgres sink is configured.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op audit store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveItemWritten(_ context.Context, event *audit.ItemWrittenEvent) error {
	n.logger.Info("item written event received",
		zap.String("itemId", event.ItemID),
		zap.String("op", event.Op),
		zap.Int64("ttlSeconds", event.TTLSeconds),
		zap.Time("writtenAt", event.WrittenAt),
	)

	return nil
}

func (n *Noop) SaveItemDeleted(_ context.Context, event *audit.ItemDeletedEvent) error {
	n.logger.Info("item deleted event received",
		zap.String("itemId", event.ItemID),
		zap.Time("deletedAt", event.DeletedAt),
	)

	return nil
}

func (n *Noop) SaveItemExpired(_ context.Context, event *audit.ItemExpiredEvent) error {
	n.logger.Info("item expired event received",
		zap.String("itemId", event.ItemID),
		zap.Time("expiredAt", event.ExpiredAt),
		zap.Time("sweptAt", event.SweptAt),
	)

	return nil
}
