// Package jsonexport reads and writes the JSON bundle.
package jsonexport

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ngrash/tzbundle/export"
)

// Write encodes doc to w with two-space indentation. Characters such as
// '<' and '&' in zone comments are written as is.
func Write(w io.Writer, doc *export.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}

// WriteFile writes doc to path. The file is written next to path first and
// renamed into place, so readers never see a partial bundle.
func WriteFile(path string, doc *export.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("make output dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := Write(f, doc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Read decodes a bundle written by Write.
func Read(r io.Reader) (*export.Document, error) {
	var doc export.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &doc, nil
}

// ReadFile decodes the bundle at path.
func ReadFile(path string) (*export.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
