package domain

import "time"

// Snapshot identifies one immutable capture of the full catalog.
// Tags are opaque strings ordered by their capture time.
type Snapshot struct {
	Tag         string    `json:"dataset_tag"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Before reports whether s was captured before other, using the tag as a
// tiebreak when both captures carry the same timestamp.
func (s Snapshot) Before(other Snapshot) bool {
	if !s.ExtractedAt.Equal(other.ExtractedAt) {
		return s.ExtractedAt.Before(other.ExtractedAt)
	}
	return s.Tag < other.Tag
}
