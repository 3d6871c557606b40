// Package frontmatter implements the YAML metadata block embedded at the top
// of every markdown article: parsing, canonical serialization, and the
// create/update merge rules for the metadata fields.
package frontmatter

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Metadata holds the canonical frontmatter fields. Timestamps stay as the
// ISO 8601 strings found in the file so re-serialization is byte-for-byte
// idempotent even for legacy values.
type Metadata struct {
	Title     string `yaml:"title"`
	Author    string `yaml:"author"`
	CreatedAt string `yaml:"created_at"`
	UpdatedAt string `yaml:"updated_at"`
	UpdatedBy string `yaml:"updated_by"`
}

// IsZero reports whether no metadata was present.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// MalformedError reports a frontmatter block that exists but is not valid
// YAML. Reads recover from it: the caller gets the full content as body and
// may log the warning.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed frontmatter: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

const delimiter = "---"

// Parse splits raw file bytes into metadata and body. Files without a
// leading frontmatter block yield zero metadata and the full content as
// body. A block that is present but not valid YAML also yields the full
// content, together with a *MalformedError the caller may surface as a
// warning; the read itself never fails.
func Parse(raw []byte) (Metadata, string, error) {
	content := string(raw)

	rest, ok := strings.CutPrefix(content, delimiter+"\n")
	if !ok {
		return Metadata{}, content, nil
	}
	block, body, ok := cutClosingDelimiter(rest)
	if !ok {
		return Metadata{}, content, nil
	}

	fields := map[string]any{}
	if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
		return Metadata{}, content, &MalformedError{Err: err}
	}

	meta := Metadata{
		Title:     scalarString(fields["title"]),
		Author:    authorString(fields["author"]),
		CreatedAt: scalarString(fields["created_at"]),
		UpdatedAt: scalarString(fields["updated_at"]),
		UpdatedBy: authorString(fields["updated_by"]),
	}
	// The serializer writes a blank line between block and body; strip it so
	// the body round-trips unchanged.
	return meta, strings.TrimLeft(body, "\n"), nil
}

// cutClosingDelimiter finds the closing --- line of an opened block.
func cutClosingDelimiter(rest string) (block, body string, ok bool) {
	if block, body, ok = strings.Cut(rest, "\n"+delimiter+"\n"); ok {
		return block, body, true
	}
	// Block closed at end of file without trailing newline.
	if trimmed, found := strings.CutSuffix(rest, "\n"+delimiter); found {
		return trimmed, "", true
	}
	return "", "", false
}

// Serialize combines metadata and body into raw file bytes. Field order is
// canonical (title, author, created_at, updated_at, updated_by) and the
// block is always emitted, so serialization is idempotent.
func Serialize(meta Metadata, body string) []byte {
	encoded, err := yaml.Marshal(meta)
	if err != nil {
		// A struct of strings cannot fail to marshal.
		panic(fmt.Sprintf("frontmatter: marshal: %v", err))
	}

	var b strings.Builder
	b.Grow(len(encoded) + len(body) + 16)
	b.WriteString(delimiter + "\n")
	b.Write(encoded)
	b.WriteString(delimiter + "\n\n")
	b.WriteString(strings.TrimLeft(body, "\n"))
	return []byte(b.String())
}

// New builds the metadata for a freshly created article.
func New(title, author string, now time.Time) Metadata {
	ts := Timestamp(now)
	return Metadata{
		Title:     title,
		Author:    author,
		CreatedAt: ts,
		UpdatedAt: ts,
		UpdatedBy: author,
	}
}

// Merge applies an update to existing metadata: author and created_at are
// preserved, updated_at and updated_by are rewritten.
func Merge(existing Metadata, editor string, now time.Time) Metadata {
	existing.UpdatedAt = Timestamp(now)
	existing.UpdatedBy = editor
	return existing
}

// Timestamp formats t as ISO 8601 UTC at second precision, the format every
// frontmatter timestamp uses.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

var (
	atxHeading    = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	setextHeading = regexp.MustCompile(`(?m)^(.+)\n=+\s*$`)
)

// ExtractTitle returns the first H1 heading of a markdown body, ATX or
// setext style, or "" when none exists.
func ExtractTitle(body string) string {
	if m := atxHeading.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := setextHeading.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// TitleFromFilename derives a display title from an article path:
// "guides/getting-started.md" becomes "Getting Started".
func TitleFromFilename(p string) string {
	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	words := strings.Fields(stem)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// scalarString renders a parsed YAML scalar back to its string form.
func scalarString(v any) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		return Timestamp(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// authorString tolerates legacy structured author values ({id, name, email})
// by extracting the email or name.
func authorString(v any) string {
	if m, ok := v.(map[string]any); ok {
		if email := scalarString(m["email"]); email != "" {
			return email
		}
		if name := scalarString(m["name"]); name != "" {
			return name
		}
		return fmt.Sprintf("%v", m)
	}
	return scalarString(v)
}
