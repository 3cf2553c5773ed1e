package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFeeds(t *testing.T) {
	testCases := []struct {
		name      string
		content   string
		wantCount int
		wantErr   bool
	}{
		{
			name: "ValidSources",
			content: `sources:
  - url: https://example.com/rss.xml
  - url: https://example.com/tech.xml
    category: technology
`,
			wantCount: 2,
		},
		{
			name:    "EmptySources",
			content: "sources: []\n",
			wantErr: true,
		},
		{
			name:    "InvalidYAML",
			content: "sources: [",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "feeds.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatalf("failed to write feeds file: %v", err)
			}

			sources, err := LoadFeeds(path)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d sources", len(sources))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(sources) != tc.wantCount {
				t.Errorf("expected %d sources, got %d", tc.wantCount, len(sources))
			}
		})
	}
}

func TestLoadFeedsMissingFile(t *testing.T) {
	if _, err := LoadFeeds(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFeedsCategoryDefaultsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	content := "sources:\n  - url: https://example.com/rss.xml\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write feeds file: %v", err)
	}

	sources, err := LoadFeeds(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sources[0].Category != "" {
		t.Errorf("expected empty category, got %q", sources[0].Category)
	}
}
