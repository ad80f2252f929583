package model

// FileMetadata is what the storage backend reports about an object once
// its metadata record has materialized after an upload.
type FileMetadata struct {
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
