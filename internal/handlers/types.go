package handlers

import "time"

// ItemBody is the wire representation of a vault item.
type ItemBody struct {
	ID        string     `doc:"The item ID"                      example:"V1StGXR8_Z5j" json:"id"`
	Data      string     `doc:"Opaque item payload"              example:"s3cr3t"       json:"data"`
	CreatedAt time.Time  `doc:"When the item was created"        json:"createdAt"`
	ExpiresAt *time.Time `doc:"When the item expires, if it does" json:"expiresAt,omitempty"`
}

// CreateItemRequest is the request body for creating a vault item.
type CreateItemRequest struct {
	Body struct {
		Data       string `doc:"Opaque item payload"                                       example:"s3cr3t" json:"data"`
		TTLSeconds int64  `doc:"Seconds until the item expires; 0 means it never expires"  example:"300"    json:"ttlSeconds,omitempty" minimum:"0"`
	}
}

// CreateItemResponse is the response for a successfully created item.
type CreateItemResponse struct {
	Headers struct {
		Location string `doc:"The item location" header:"Location"`
	}
	Body ItemBody
}

// UpdateItemRequest is the request for upserting a vault item by ID.
type UpdateItemRequest struct {
	ID   string `doc:"The item ID" example:"V1StGXR8_Z5j" path:"id"`
	Body struct {
		Data       string `doc:"Opaque item payload"                                      example:"s3cr3t" json:"data"`
		TTLSeconds int64  `doc:"Seconds until the item expires; 0 means it never expires" example:"300"    json:"ttlSeconds,omitempty" minimum:"0"`
	}
}

// GetItemRequest is the request for fetching a single vault item.
type GetItemRequest struct {
	ID string `doc:"The item ID" example:"V1StGXR8_Z5j" path:"id"`
}

// DeleteItemRequest is the request for deleting a vault item.
type DeleteItemRequest struct {
	ID string `doc:"The item ID" example:"V1StGXR8_Z5j" path:"id"`
}

// ItemResponse wraps a single vault item.
type ItemResponse struct {
	Body ItemBody
}

// ListItemsResponse is the response for listing vault items.
type ListItemsResponse struct {
	Body struct {
		Items []ItemBody `doc:"Live vault items ordered by ID" json:"items"`
		Count int        `doc:"Number of live items"           json:"count"`
	}
}
