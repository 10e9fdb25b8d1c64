package models

import "time"

// UploadedDocument is an in-memory record of a user-submitted PDF.
// The bytes live in a per-session temp directory and are deleted together
// with the session; nothing survives a restart.
type UploadedDocument struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	PageCount  int       `json:"pageCount,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`

	// Path is the on-disk location inside the session temp dir.
	// Not exposed to clients.
	Path string `json:"-"`
}
