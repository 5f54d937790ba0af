package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/serroba/vault-demo-go/internal/audit"
	"github.com/serroba/vault-demo-go/internal/messaging"
	"github.com/serroba/vault-demo-go/internal/vault"
	"go.uber.org/zap"
)

// VaultHandler handles vault item CRUD operations.
type VaultHandler struct {
	repo           vault.Repository
	newID          vault.IDGenerator
	publishWritten messaging.Publish[audit.ItemWrittenEvent]
	publishDeleted messaging.Publish[audit.ItemDeletedEvent]
	logger         *zap.Logger
}

// NewVaultHandler creates a new vault handler.
func NewVaultHandler(
	repo vault.Repository,
	newID vault.IDGenerator,
	publishWritten messaging.Publish[audit.ItemWrittenEvent],
	publishDeleted messaging.Publish[audit.ItemDeletedEvent],
	logger *zap.Logger,
) *VaultHandler {
	return &VaultHandler{
		repo:           repo,
		newID:          newID,
		publishWritten: publishWritten,
		publishDeleted: publishDeleted,
		logger:         logger,
	}
}

func (h *VaultHandler) CreateItem(ctx context.Context, req *CreateItemRequest) (*CreateItemResponse, error) {
	item := &vault.Item{
		ID:        h.newID(),
		Data:      req.Body.Data,
		CreatedAt: time.Now(),
	}

	ttl := time.Duration(req.Body.TTLSeconds) * time.Second

	if err := h.repo.Create(ctx, item, ttl); err != nil {
		if errors.Is(err, vault.ErrAlreadyExists) {
			// A generated ID collided; the client can simply retry.
			return nil, huma.Error409Conflict("item id collision, retry the request")
		}

		return nil, mapStoreError(err, "failed to create item")
	}

	h.auditWrite(ctx, item, audit.OpCreate, req.Body.TTLSeconds)

	resp := &CreateItemResponse{}
	resp.Headers.Location = "/vault/" + item.ID
	resp.Body = itemBody(item)

	return resp, nil
}

func (h *VaultHandler) UpdateItem(ctx context.Context, req *UpdateItemRequest) (*ItemResponse, error) {
	createdAt := time.Now()

	// Overwriting a live item keeps its original creation time.
	if existing, err := h.repo.Get(ctx, req.ID); err == nil {
		createdAt = existing.CreatedAt
	}

	item := &vault.Item{
		ID:        req.ID,
		Data:      req.Body.Data,
		CreatedAt: createdAt,
	}

	ttl := time.Duration(req.Body.TTLSeconds) * time.Second

	if err := h.repo.Put(ctx, item, ttl); err != nil {
		return nil, mapStoreError(err, "failed to update item")
	}

	h.auditWrite(ctx, item, audit.OpUpdate, req.Body.TTLSeconds)

	return &ItemResponse{Body: itemBody(item)}, nil
}

func (h *VaultHandler) GetItem(ctx context.Context, req *GetItemRequest) (*ItemResponse, error) {
	item, err := h.repo.Get(ctx, req.ID)
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			return nil, huma.Error404NotFound("vault item not found")
		}

		return nil, mapStoreError(err, "failed to get item")
	}

	return &ItemResponse{Body: itemBody(item)}, nil
}

func (h *VaultHandler) ListItems(ctx context.Context, _ *struct{}) (*ListItemsResponse, error) {
	items, err := h.repo.List(ctx)
	if err != nil {
		return nil, mapStoreError(err, "failed to list items")
	}

	resp := &ListItemsResponse{}
	resp.Body.Items = make([]ItemBody, 0, len(items))

	for _, item := range items {
		resp.Body.Items = append(resp.Body.Items, itemBody(item))
	}

	resp.Body.Count = len(resp.Body.Items)

	return resp, nil
}

func (h *VaultHandler) DeleteItem(ctx context.Context, req *DeleteItemRequest) (*ItemResponse, error) {
	item, err := h.repo.Delete(ctx, req.ID)
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			return nil, huma.Error404NotFound("vault item not found")
		}

		return nil, mapStoreError(err, "failed to delete item")
	}

	meta := RequestMetaFromContext(ctx)
	event := &audit.ItemDeletedEvent{
		EventID:   uuid.NewString(),
		ItemID:    item.ID,
		DeletedAt: time.Now(),
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
	}

	if err := h.publishDeleted(event); err != nil {
		h.logger.Error("failed to publish audit event",
			zap.String("itemId", item.ID),
			zap.Error(err),
		)
	}

	return &ItemResponse{Body: itemBody(item)}, nil
}

// auditWrite publishes an item written event. Publish failures are logged,
// never surfaced to the caller.
func (h *VaultHandler) auditWrite(ctx context.Context, item *vault.Item, op string, ttlSeconds int64) {
	meta := RequestMetaFromContext(ctx)
	event := &audit.ItemWrittenEvent{
		EventID:    uuid.NewString(),
		ItemID:     item.ID,
		Op:         op,
		TTLSeconds: ttlSeconds,
		WrittenAt:  time.Now(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
	}

	if err := h.publishWritten(event); err != nil {
		h.logger.Error("failed to publish audit event",
			zap.String("itemId", item.ID),
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func mapStoreError(err error, msg string) error {
	if errors.Is(err, vault.ErrUnavailable) {
		return huma.Error503ServiceUnavailable("vault store busy, retry the request")
	}

	return huma.Error500InternalServerError(msg)
}

func itemBody(item *vault.Item) ItemBody {
	body := ItemBody{
		ID:        item.ID,
		Data:      item.Data,
		CreatedAt: item.CreatedAt,
	}

	if !item.ExpiresAt.IsZero() {
		expiresAt := item.ExpiresAt
		body.ExpiresAt = &expiresAt
	}

	return body
}
