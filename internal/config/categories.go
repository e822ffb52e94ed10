package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// categoriesFile is the YAML shape accepted by LoadCategoriesFile.
type categoriesFile struct {
	Categories []string `yaml:"categories"`
}

// LoadCategoriesFile reads a category list from a YAML file. Both a
// bare sequence and a {categories: [...]} mapping are accepted.
// Duplicate and empty entries are dropped, order is preserved.
func LoadCategoriesFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := yaml.Unmarshal(data, &names); err != nil {
		var file categoriesFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse categories file: %w", err)
		}
		names = file.Categories
	}

	var out []string
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out, nil
}
