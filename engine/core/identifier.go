package core

import (
	"github.com/google/uuid"
)

// ResourceID identifies a GPU-side resource (program, texture, framebuffer) for logging and caches.
type ResourceID = uuid.UUID

// NewResourceID returns a fresh random identifier.
func NewResourceID() ResourceID {
	return uuid.New()
}

// ShortID returns the first block of the identifier, enough to tell resources apart in logs.
func ShortID(id ResourceID) string {
	return id.String()[:8]
}
