package audit

import "time"

// Topics for vault audit events.
const (
	TopicItemWritten = "vault.item.written"
	TopicItemDeleted = "vault.item.deleted"
	TopicItemExpired = "vault.item.expired"
)

// Write operations recorded in ItemWrittenEvent.
const (
	OpCreate = "create"
	OpUpdate = "update"
)

// ItemWrittenEvent is emitted when a vault item is created or updated.
type ItemWrittenEvent struct {
	EventID    string    `json:"eventId"`
	ItemID     string    `json:"itemId"`
	Op         string    `json:"op"`
	TTLSeconds int64     `json:"ttlSeconds,omitempty"`
	WrittenAt  time.Time `json:"writtenAt"`
	ClientIP   string    `json:"clientIp,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
}

// ItemDeletedEvent is emitted when a vault item is explicitly deleted.
type ItemDeletedEvent struct {
	EventID   string    `json:"eventId"`
	ItemID    string    `json:"itemId"`
	DeletedAt time.Time `json:"deletedAt"`
	ClientIP  string    `json:"clientIp,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// ItemExpiredEvent is emitted by the reconciler when a sweep evicts an
// item whose TTL passed. SweptAt can lag ExpiredAt by up to one sweep
// interval.
type ItemExpiredEvent struct {
	EventID   string    `json:"eventId"`
	ItemID    string    `json:"itemId"`
	ExpiredAt time.Time `json:"expiredAt"`
	SweptAt   time.Time `json:"sweptAt"`
}
