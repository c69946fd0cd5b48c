// Package cache persists canonical entities as an indented JSON array.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kg-reconcile/internal/model"
)

// Load reads the cache at path. A missing file is an empty cache. A file
// that cannot be decoded is logged and treated as empty so a run can
// rebuild it.
func Load(path string) ([]model.CanonicalEntity, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: read")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var entities []model.CanonicalEntity
	if err := json.Unmarshal(data, &entities); err != nil {
		zap.L().Warn("cache: unreadable, starting empty",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, nil
	}
	return entities, nil
}

// Encode renders entities as the on-disk cache document: a two-space
// indented array with non-ASCII and HTML characters left as is.
func Encode(entities []model.CanonicalEntity) ([]byte, error) {
	if entities == nil {
		entities = []model.CanonicalEntity{}
	}
	return MarshalIndent(entities)
}

// Save replaces the cache at path.
func Save(path string, entities []model.CanonicalEntity) error {
	data, err := Encode(entities)
	if err != nil {
		return err
	}
	if err := WriteFile(path, data); err != nil {
		return err
	}

	zap.L().Info("cache: saved",
		zap.String("path", path),
		zap.Int("entities", len(entities)),
	)
	return nil
}

// WriteFile replaces the file at path with data. The data is written to a
// temporary file in the same directory and renamed into place, creating the
// directory when needed.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "cache: create dir")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "cache: create temp")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "cache: write temp")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "cache: close temp")
	}
	return eris.Wrap(os.Rename(tmp.Name(), path), "cache: replace")
}

// MarshalIndent encodes v the way the cache is encoded: two-space indent,
// HTML characters unescaped.
func MarshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, eris.Wrap(err, "cache: encode")
	}
	return buf.Bytes(), nil
}
