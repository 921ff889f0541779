// Package loader reads documents from the local filesystem for ingestion.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

// Supported file extensions, lowercased.
var textExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// LoadDirectory walks root recursively and returns a document per readable
// text file. The source of each document is its path relative to root, so
// answers cite files the way the operator knows them. Results are sorted by
// source for deterministic ingestion order.
func LoadDirectory(root string) ([]*domain.Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("document directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("document directory %s is not a directory", root)
	}

	var docs []*domain.Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories like .git hold nothing ingestable
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}

		doc := domain.NewDocument(filepath.ToSlash(relPath), string(content))
		doc.Metadata["size_bytes"] = fmt.Sprintf("%d", len(content))
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
	return docs, nil
}

// LoadFile reads a single file into a document. The source is the file's
// base name.
func LoadFile(path string) (*domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return domain.NewDocument(filepath.Base(path), string(content)), nil
}
