package mapper

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// IsMapperFile reports whether path has a mapper document extension.
func IsMapperFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".md":
		return true
	default:
		return false
	}
}

// LoadFile reads one .xml or .md document.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapper file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return ParseXML(f, path)
	case ".md":
		return ParseMarkdown(f, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
}

// LoadDir reads every mapper document below dir in lexical order. Markdown
// files without a SQL section, such as READMEs, are skipped.
func LoadDir(dir string) ([]*Document, error) {
	var docs []*Document

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if !IsMapperFile(path) {
			return nil
		}

		doc, err := LoadFile(path)
		if err != nil {
			if errors.Is(err, ErrMissingSQLSection) {
				return nil
			}

			return err
		}

		docs = append(docs, doc)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load mapper directory %s: %w", dir, err)
	}

	return docs, nil
}
