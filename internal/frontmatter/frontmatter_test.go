package frontmatter

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	t.Run("full block", func(t *testing.T) {
		raw := []byte("---\n" +
			"title: Getting Started\n" +
			"author: alice@x.com\n" +
			"created_at: 2025-03-10T12:00:00Z\n" +
			"updated_at: 2025-03-11T08:30:00Z\n" +
			"updated_by: bob@x.com\n" +
			"---\n\n# Getting Started\n\nBody text.\n")

		meta, body, err := Parse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.Title != "Getting Started" {
			t.Errorf("title = %q, want %q", meta.Title, "Getting Started")
		}
		if meta.Author != "alice@x.com" {
			t.Errorf("author = %q, want %q", meta.Author, "alice@x.com")
		}
		if meta.CreatedAt != "2025-03-10T12:00:00Z" {
			t.Errorf("created_at = %q", meta.CreatedAt)
		}
		if meta.UpdatedBy != "bob@x.com" {
			t.Errorf("updated_by = %q", meta.UpdatedBy)
		}
		if want := "# Getting Started\n\nBody text.\n"; body != want {
			t.Errorf("body = %q, want %q", body, want)
		}
	})

	t.Run("no frontmatter", func(t *testing.T) {
		raw := []byte("# Just a heading\n\nContent.\n")
		meta, body, err := Parse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !meta.IsZero() {
			t.Errorf("metadata = %+v, want zero", meta)
		}
		if body != string(raw) {
			t.Errorf("body = %q, want full content", body)
		}
	})

	t.Run("unclosed block is body", func(t *testing.T) {
		raw := []byte("---\ntitle: broken\nno closing delimiter\n")
		meta, body, err := Parse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !meta.IsZero() {
			t.Errorf("metadata = %+v, want zero", meta)
		}
		if body != string(raw) {
			t.Errorf("body = %q, want full content", body)
		}
	})

	t.Run("malformed yaml recovers with warning", func(t *testing.T) {
		raw := []byte("---\ntitle: [unclosed\n---\n\nBody.\n")
		meta, body, err := Parse(raw)
		var malformed *MalformedError
		if !errors.As(err, &malformed) {
			t.Fatalf("error = %v, want *MalformedError", err)
		}
		if !meta.IsZero() {
			t.Errorf("metadata = %+v, want zero", meta)
		}
		if body != string(raw) {
			t.Errorf("body = %q, want full content", body)
		}
	})

	t.Run("legacy structured author", func(t *testing.T) {
		raw := []byte("---\n" +
			"title: Old Page\n" +
			"author:\n  id: 7\n  name: Alice\n  email: alice@x.com\n" +
			"created_at: 2021-06-01T00:00:00Z\n" +
			"updated_at: 2021-06-01T00:00:00Z\n" +
			"updated_by: alice@x.com\n" +
			"---\n\nBody.\n")
		meta, _, err := Parse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.Author != "alice@x.com" {
			t.Errorf("author = %q, want email from structured value", meta.Author)
		}
	})

	t.Run("block closed at end of file", func(t *testing.T) {
		raw := []byte("---\ntitle: Only Meta\nauthor: a@x.com\ncreated_at: \"2025-01-01T00:00:00Z\"\nupdated_at: \"2025-01-01T00:00:00Z\"\nupdated_by: a@x.com\n---")
		meta, body, err := Parse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.Title != "Only Meta" {
			t.Errorf("title = %q", meta.Title)
		}
		if body != "" {
			t.Errorf("body = %q, want empty", body)
		}
	})
}

func TestSerializeIdempotent(t *testing.T) {
	metas := []Metadata{
		{Title: "A Page", Author: "alice@x.com", CreatedAt: "2025-03-10T12:00:00Z", UpdatedAt: "2025-03-10T12:00:00Z", UpdatedBy: "alice@x.com"},
		{Title: "Colons: and quotes \"here\"", Author: "bob@x.com"},
		{},
	}
	bodies := []string{"# A Page\n\nText.\n", "", "plain text"}

	for _, meta := range metas {
		for _, body := range bodies {
			first := Serialize(meta, body)
			parsedMeta, parsedBody, err := Parse(first)
			if err != nil {
				t.Fatalf("parse after serialize: %v", err)
			}
			second := Serialize(parsedMeta, parsedBody)
			if string(first) != string(second) {
				t.Errorf("serialize not idempotent:\nfirst:  %q\nsecond: %q", first, second)
			}
		}
	}
}

func TestRoundTripPreservesMetadata(t *testing.T) {
	meta := New("Intro", "alice@x.com", time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	raw := Serialize(meta, "# Intro\n")

	got, body, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != meta {
		t.Errorf("metadata = %+v, want %+v", got, meta)
	}
	if body != "# Intro\n" {
		t.Errorf("body = %q", body)
	}
}

func TestMerge(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	meta := New("Intro", "alice@x.com", created)

	updated := Merge(meta, "bob@x.com", created.Add(2*time.Hour))
	if updated.Author != "alice@x.com" {
		t.Errorf("author changed to %q", updated.Author)
	}
	if updated.CreatedAt != Timestamp(created) {
		t.Errorf("created_at changed to %q", updated.CreatedAt)
	}
	if updated.UpdatedBy != "bob@x.com" {
		t.Errorf("updated_by = %q", updated.UpdatedBy)
	}
	if updated.UpdatedAt != "2025-03-10T14:00:00Z" {
		t.Errorf("updated_at = %q", updated.UpdatedAt)
	}
	if !(updated.UpdatedAt > updated.CreatedAt) {
		t.Errorf("updated_at %q not after created_at %q", updated.UpdatedAt, updated.CreatedAt)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"atx", "# My Title\n\nBody.\n", "My Title"},
		{"atx not first line", "intro text\n\n# Later Title\n", "Later Title"},
		{"setext", "My Title\n=====\n\nBody.\n", "My Title"},
		{"no heading", "just text\n", ""},
		{"h2 only", "## Not H1\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.body); got != tt.want {
				t.Errorf("ExtractTitle(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"guides/getting-started.md", "Getting Started"},
		{"notes.md", "Notes"},
		{"a/b/api_reference.md", "Api Reference"},
	}
	for _, tt := range tests {
		if got := TitleFromFilename(tt.path); got != tt.want {
			t.Errorf("TitleFromFilename(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSerializeCanonicalOrder(t *testing.T) {
	raw := string(Serialize(Metadata{Title: "T", Author: "a@x.com", CreatedAt: "c", UpdatedAt: "u", UpdatedBy: "b@x.com"}, "body\n"))
	order := []string{"title:", "author:", "created_at:", "updated_at:", "updated_by:"}
	last := -1
	for _, field := range order {
		i := strings.Index(raw, field)
		if i < 0 {
			t.Fatalf("field %q missing from %q", field, raw)
		}
		if i < last {
			t.Errorf("field %q out of order in %q", field, raw)
		}
		last = i
	}
}
