package model

import "time"

// Embedding is one cached vector. Addressable only by the owning entity id;
// the stored ContentHash and Model tell the caller whether the vector is
// still valid for the current text and embedding model. A put with a new
// hash overwrites the previous row, it is never mutated in place.
type Embedding struct {
	EntityID    string    `json:"entity_id"`
	Vector      []float32 `json:"vector"`
	ContentHash string    `json:"content_hash"`
	Model       string    `json:"model"`
	UpdatedAt   time.Time `json:"updated_at"`
}
