package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/metrics"
)

// document is one JSON array file kept fully in memory. Every change
// rewrites the whole file; memory is only replaced after the write landed.
type document[T any] struct {
	name    string
	path    string
	encode  func(T) (json.RawMessage, error)
	decode  func(json.RawMessage) (T, error)
	metrics *metrics.Collector

	mu    sync.RWMutex
	items []T
}

func (d *document[T]) load() error {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		d.items = nil
		return nil
	}
	if err != nil {
		return domain.StorageError(err, "failed to read %s document", d.name)
	}

	items, err := d.parse(data)
	if err != nil {
		return err
	}
	d.items = items
	return nil
}

func (d *document[T]) parse(data []byte) ([]T, error) {
	return parseRecords(d.name, data, d.decode)
}

func parseRecords[T any](name string, data []byte, decode func(json.RawMessage) (T, error)) ([]T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, domain.ValidationError("%s document is not a JSON array: %v", name, err)
	}

	items := make([]T, 0, len(raws))
	for i, raw := range raws {
		item, err := decode(raw)
		if err != nil {
			return nil, domain.ValidationError("%s document entry %d is invalid: %v", name, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (d *document[T]) marshal(items []T) ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := d.encode(item)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	return json.MarshalIndent(raws, "", "  ")
}

// commit writes next and swaps it in. Callers hold d.mu for writing.
func (d *document[T]) commit(next []T) error {
	data, err := d.marshal(next)
	if err != nil {
		return domain.StorageError(err, "failed to encode %s document", d.name)
	}

	start := time.Now()
	if err := writeFileAtomic(d.path, data); err != nil {
		return domain.StorageError(err, "failed to write %s document", d.name)
	}
	d.metrics.ObserveDocumentWrite(d.name, time.Since(start))

	d.items = next
	return nil
}

// snapshot returns a shallow copy of the current items. Stored items are
// never mutated in place, so sharing their values is safe.
func (d *document[T]) snapshot() []T {
	out := make([]T, len(d.items))
	copy(out, d.items)
	return out
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func decodeRecord(data []byte, v any) (map[string]json.RawMessage, error) {
	return domain.DecodeRecord(data, v)
}

func encodeRecord(v any, unknown map[string]json.RawMessage) (json.RawMessage, error) {
	return domain.EncodeRecord(v, unknown)
}

func documentPath(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.json", name))
}
