package domain

// RecordFilter represents the equality/contains filters the backing store
// supports on entity collections.
type RecordFilter struct {
	ID           *int64
	DatasetTag   string
	TextContains string
}

// IsZero reports whether the filter constrains nothing.
func (f RecordFilter) IsZero() bool {
	return f.ID == nil && f.DatasetTag == "" && f.TextContains == ""
}
