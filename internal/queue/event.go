// Package queue defines message payloads exchanged over the message broker.
package queue

// PhotoUploadedEvent is published when a member uploads a photo. It carries
// enough information for downstream consumers to log, notify, or trigger
// processing without querying the primary database.
type PhotoUploadedEvent struct {
	PhotoID     uint64 `json:"photo_id"`
	OwnerID     uint64 `json:"owner_id"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageKey  string `json:"storage_key"`
	UploadedAt  string `json:"uploaded_at"`
}

// SlideshowCreatedEvent is published when a slideshow is created with its
// initial photo set.
type SlideshowCreatedEvent struct {
	SlideshowID uint64   `json:"slideshow_id"`
	OwnerID     uint64   `json:"owner_id"`
	Title       string   `json:"title"`
	IsPublic    bool     `json:"is_public"`
	PhotoIDs    []uint64 `json:"photo_ids"`
	CreatedAt   string   `json:"created_at"`
}
