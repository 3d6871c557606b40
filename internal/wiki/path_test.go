package wiki

import (
	"errors"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"simple", "docs/intro.md", "docs/intro.md", false},
		{"cleaned dot segments", "docs/./intro.md", "docs/intro.md", false},
		{"double slash", "docs//intro.md", "docs/intro.md", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"absolute", "/etc/passwd", "", true},
		{"backslash", `docs\intro.md`, "", true},
		{"traversal", "../../etc/passwd", "", true},
		{"embedded traversal", "docs/../../secret", "", true},
		{"git metadata", ".git/config", "", true},
		{"nested git metadata", "docs/.git/config", "", true},
		{"only dots", "./.", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePath(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ValidatePath(%q) error = %v, want ErrValidation", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidatePath(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ValidatePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeArticlePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"docs/intro", "docs/intro.md"},
		{"docs/intro.md", "docs/intro.md"},
		{"notes", "notes.md"},
	}
	for _, tt := range tests {
		got, err := NormalizeArticlePath(tt.in)
		if err != nil {
			t.Fatalf("NormalizeArticlePath(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeArticlePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := NormalizeArticlePath("../escape"); !errors.Is(err, ErrValidation) {
		t.Errorf("traversal error = %v, want ErrValidation", err)
	}
}
