// Package project persists compositions as YAML documents and rebuilds
// live timelines from them.
package project

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"motioncanvas/internal/element"
	"motioncanvas/internal/keyframe"
	"motioncanvas/internal/timeline"
)

// CurrentVersion is written into every saved document. Readers reject
// versions they do not know how to interpret.
const CurrentVersion = 1

// Document is the persisted form of a composition.
type Document struct {
	Version  int                      `yaml:"version"`
	Canvas   element.Size             `yaml:"canvas"`
	Duration float64                  `yaml:"duration"`
	Elements []element.Element        `yaml:"elements"`
	Tracks   []keyframe.TrackDocument `yaml:"tracks,omitempty"`
}

// Load reads and validates a project document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if doc.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported project version %d", doc.Version)
	}
	if doc.Canvas.Width <= 0 || doc.Canvas.Height <= 0 {
		return nil, fmt.Errorf("project canvas must have positive dimensions")
	}
	if doc.Duration <= 0 {
		return nil, fmt.Errorf("project duration must be positive")
	}
	return &doc, nil
}

// Save writes the document to path, creating parent directories as needed.
func Save(doc *Document, path string) error {
	doc.Version = CurrentVersion
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	return nil
}

// Controller builds a live timeline from the document: elements installed,
// tracks reconstructed, playback stopped at t=0.
func (d *Document) Controller(logger *slog.Logger) (*timeline.Controller, error) {
	c := timeline.NewController(d.Canvas, d.Duration, logger)
	c.SetElements(d.Elements)
	for _, trackDoc := range d.Tracks {
		track, err := keyframe.TrackFromDocument(trackDoc)
		if err != nil {
			return nil, fmt.Errorf("track %s/%s: %w", trackDoc.Element, trackDoc.Property, err)
		}
		c.AddTrack(track)
	}
	return c, nil
}

// FromController captures a timeline back into a persistable document.
func FromController(c *timeline.Controller) *Document {
	return &Document{
		Version:  CurrentVersion,
		Canvas:   c.Canvas(),
		Duration: c.Duration(),
		Elements: c.ElementsSnapshot(),
		Tracks:   c.TrackDocuments(),
	}
}
