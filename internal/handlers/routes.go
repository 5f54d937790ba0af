package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/vault-demo-go/internal/ratelimit"
)

// Calls allowed per window for each route, carried in operation metadata so
// the admission middleware picks them up. Writes are scarce, reads cheap.
const (
	createItemLimit = 3
	updateItemLimit = 60
	deleteItemLimit = 60
	readItemLimit   = 1200
)

// RegisterRoutes registers all vault routes with their per-route admission
// limits.
func RegisterRoutes(api huma.API, vaultHandler *VaultHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-vault-item",
		Method:        http.MethodPost,
		Path:          "/vault",
		Summary:       "Create vault item",
		Description:   "Creates a vault item with a generated ID and an optional TTL.",
		Tags:          []string{"Vault"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Limit: createItemLimit},
		},
	}, vaultHandler.CreateItem)

	huma.Register(api, huma.Operation{
		OperationID: "update-vault-item",
		Method:      http.MethodPut,
		Path:        "/vault/{id}",
		Summary:     "Update vault item",
		Description: "Upserts the vault item with the given ID, resetting its TTL.",
		Tags:        []string{"Vault"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Limit: updateItemLimit},
		},
	}, vaultHandler.UpdateItem)

	// Registered before GET /vault/{id} so the static segment wins.
	huma.Register(api, huma.Operation{
		OperationID: "list-vault-items",
		Method:      http.MethodGet,
		Path:        "/vault/items",
		Summary:     "List vault items",
		Description: "Returns all live vault items ordered by ID.",
		Tags:        []string{"Vault"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Limit: readItemLimit},
		},
	}, vaultHandler.ListItems)

	huma.Register(api, huma.Operation{
		OperationID: "get-vault-item",
		Method:      http.MethodGet,
		Path:        "/vault/{id}",
		Summary:     "Get vault item",
		Description: "Returns the live vault item with the given ID.",
		Tags:        []string{"Vault"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Limit: readItemLimit},
		},
	}, vaultHandler.GetItem)

	huma.Register(api, huma.Operation{
		OperationID: "delete-vault-item",
		Method:      http.MethodDelete,
		Path:        "/vault/{id}",
		Summary:     "Delete vault item",
		Description: "Deletes the vault item with the given ID and returns it.",
		Tags:        []string{"Vault"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Limit: deleteItemLimit},
		},
	}, vaultHandler.DeleteItem)
}
