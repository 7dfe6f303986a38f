// Package knowledgebase reads feature records from JSON documents.
package knowledgebase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"featurerag/internal/domain"
)

// Load parses a JSON document holding an array of feature objects.
// Records are returned in document order.
func Load(path string) ([]domain.FeatureRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: knowledge base %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var records []domain.FeatureRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: knowledge base %s: %v", domain.ErrParse, path, err)
	}
	return records, nil
}

// LoadGlob loads every file under root whose slash-separated relative path
// matches pattern, in lexical path order, and concatenates their records.
func LoadGlob(root, pattern string) ([]domain.FeatureRecord, error) {
	paths, err := match(root, pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no knowledge base files match %s in %s", domain.ErrNotFound, pattern, root)
	}

	var all []domain.FeatureRecord
	for _, p := range paths {
		records, err := Load(p)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// LoadPath loads path as a single file, or as a pattern when it contains
// glob metacharacters.
func LoadPath(path string) ([]domain.FeatureRecord, error) {
	if !hasMeta(path) {
		return Load(path)
	}
	root, pattern := splitPattern(path)
	return LoadGlob(root, pattern)
}

func match(root, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: invalid pattern %q", domain.ErrInvalidArgument, pattern)
	}

	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		if err == nil && ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: knowledge base directory %s", domain.ErrNotFound, root)
		}
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// splitPattern separates the literal directory prefix of a pattern from the
// part that needs matching.
func splitPattern(path string) (string, string) {
	parts := strings.Split(filepath.ToSlash(path), "/")
	i := 0
	for i < len(parts)-1 && !hasMeta(parts[i]) {
		i++
	}
	root := strings.Join(parts[:i], "/")
	if root == "" {
		if strings.HasPrefix(path, "/") {
			root = "/"
		} else {
			root = "."
		}
	}
	return filepath.FromSlash(root), strings.Join(parts[i:], "/")
}
