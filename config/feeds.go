package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FeedSource is a single syndication feed to ingest from. Category is an
// optional default applied to items that carry none of their own.
type FeedSource struct {
	URL      string `yaml:"url"`
	Category string `yaml:"category,omitempty"`
}

type feedsFile struct {
	Sources []FeedSource `yaml:"sources"`
}

// LoadFeeds reads the feed source list from a YAML file.
func LoadFeeds(path string) ([]FeedSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file: %w", err)
	}

	var f feedsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse feeds file: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("feeds file %s lists no sources", path)
	}

	return f.Sources, nil
}
