package domain

import (
	"fmt"
	"strings"
	"time"
)

// Collection names the record collections of the backing store.
type Collection string

const (
	CollectionItems    Collection = "items"
	CollectionMonsters Collection = "monsters"
	CollectionSkills   Collection = "skills"
	CollectionBuffs    Collection = "buffs"
)

// ParseCollection validates a collection name from user input.
func ParseCollection(name string) (Collection, bool) {
	switch Collection(name) {
	case CollectionItems, CollectionMonsters, CollectionSkills, CollectionBuffs:
		return Collection(name), true
	}
	return "", false
}

// TokenPrefix marks untranslated placeholder tokens in extracted text,
// e.g. "##1023" for a string the client never shipped a translation for.
const TokenPrefix = "##"

// LocalizedText maps a locale name to display text. Any locale may be empty.
type LocalizedText map[string]string

// Get returns the text for the given locale, falling back to english and then
// to any non-empty locale. A fully empty map yields "".
func (t LocalizedText) Get(locale string) string {
	if text := t[locale]; text != "" {
		return text
	}
	if text := t["english"]; text != "" {
		return text
	}
	for _, text := range t {
		if text != "" {
			return text
		}
	}
	return ""
}

// IsPlaceholderToken reports whether a display name is a raw token the
// extractor could not translate.
func IsPlaceholderToken(name string) bool {
	return strings.HasPrefix(name, TokenPrefix)
}

// EntityRecord is one revision of a catalog entity (item, monster, skill or
// buff) as produced by a single snapshot. The same logical entity commonly
// appears unchanged across many tags, so (ID, DatasetTag) carries no
// uniqueness guarantee.
type EntityRecord struct {
	ID          int64          `json:"id"`
	DatasetTag  string         `json:"dataset_tag"`
	Name        LocalizedText  `json:"name"`
	Description LocalizedText  `json:"description"`
	Raw         map[string]any `json:"raw,omitempty"`
	ExtractedAt time.Time      `json:"extracted_at"`
}

// DisplayName returns the record's name for the locale. Placeholder tokens
// pass through unchanged; only a fully empty name degrades to a synthetic
// label.
func (e EntityRecord) DisplayName(locale string) string {
	if name := e.Name.Get(locale); name != "" {
		return name
	}
	return fmt.Sprintf("Entity %d", e.ID)
}
