package snippets

import (
	"fmt"
	"strings"
)

// CanonicalText renders the semantically relevant snippet fields into the
// text blob handed to the embedding model. The field order and formatting
// are fixed: re-embedding must be comparable before and after a no-op
// update. Missing optional fields render as empty segments.
func CanonicalText(title, language, description string, tags []string, code string) string {
	return fmt.Sprintf(
		"Title: %s\nLanguage: %s\nDescription: %s\nTags: %s\nCode:\n%s",
		title,
		language,
		description,
		strings.Join(tags, ", "),
		code,
	)
}
