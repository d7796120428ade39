// Package store persists annotation sets as per-image JSON documents.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalidRecord is reported for records that cannot become a shape.
var ErrInvalidRecord = errors.New("store: invalid record")

// Document is the JSON file stored next to each image.
type Document struct {
	FilePath    []string `json:"file_path"`
	Annotations []Record `json:"annotations"`
}

// Record is one shape. Canonical ellipses carry Center, Axes and Angle;
// legacy two-point ellipses, polygons and closed curves carry Points.
type Record struct {
	Name     string       `json:"name"`
	Shape    string       `json:"shape"`
	Center   *[2]float64  `json:"center,omitempty"`
	Axes     *[2]float64  `json:"axes,omitempty"`
	Angle    *float64     `json:"angle,omitempty"`
	Points   [][2]float64 `json:"points,omitempty"`
	Color    [3]uint8     `json:"color"`
	Mask     string       `json:"mask"`
	OrigSize [2]float64   `json:"orig_size"`
}

// Canonical reports whether the record uses the center/axes/angle encoding.
func (r Record) Canonical() bool {
	return r.Center != nil
}

// PathFor returns the document path for an image: same directory and base
// name, with a .json extension.
func PathFor(imagePath string) string {
	return imagePath[:len(imagePath)-len(filepath.Ext(imagePath))] + ".json"
}

// ReadFile loads a document from disk.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &doc, nil
}

// WriteFile writes doc to path with four-space indentation.
func WriteFile(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
