// Package store provides the persistence boundary around the matching
// engine: JSON files for the product catalog and tender snapshots, MongoDB
// for fetched tenders and match history.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/salesagent/salesagent/internal/model"
)

// LoadCatalog reads the product catalog file (`offerings` array).
func LoadCatalog(path string) (*model.ProductCatalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open product catalog: %w", err)
	}
	defer file.Close()

	var catalog model.ProductCatalog
	if err := json.NewDecoder(file).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("decode product catalog %s: %w", path, err)
	}

	for i := range catalog.Offerings {
		if err := catalog.Offerings[i].Validate(); err != nil {
			return nil, fmt.Errorf("product catalog %s: %w", path, err)
		}
	}

	return &catalog, nil
}

// LoadTenders reads a stored tender collection file (`services` array).
func LoadTenders(path string) (*model.TenderCollection, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tender collection: %w", err)
	}
	defer file.Close()

	var collection model.TenderCollection
	if err := json.NewDecoder(file).Decode(&collection); err != nil {
		return nil, fmt.Errorf("decode tender collection %s: %w", path, err)
	}

	return &collection, nil
}

// FileTenderSource serves tenders from a snapshot file.
type FileTenderSource struct {
	Path string
}

func (s FileTenderSource) Tenders(_ context.Context) ([]model.Tender, error) {
	collection, err := LoadTenders(s.Path)
	if err != nil {
		return nil, err
	}
	return collection.Services, nil
}

// FileProductSource serves the product catalog from a file.
type FileProductSource struct {
	Path string
}

func (s FileProductSource) Products(_ context.Context) ([]model.Product, error) {
	catalog, err := LoadCatalog(s.Path)
	if err != nil {
		return nil, err
	}
	return catalog.Offerings, nil
}

// ExportMatches writes matches to a timestamped JSON file in dir and
// returns the file path. The run id keeps concurrent exports from
// colliding.
func ExportMatches(dir, runID string, matches []model.Match) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("matches_%s_%s.json", time.Now().UTC().Format("20060102T150405"), runID)
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(matches); err != nil {
		return "", fmt.Errorf("encode matches: %w", err)
	}

	return path, nil
}
