// Package graphio reads graph documents and writes layout exports.
//
// A graph document is JSON or YAML of the form
//
//	{"nodes": [{"id": "a", "category": "process"}], "links": [{"source": "a", "target": "b"}]}
//
// Links accept sourceId/targetId or source/target keys.
package graphio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

type Format int

const (
	JSON Format = iota
	YAML
)

// FormatOf infers the format from a file extension, defaulting to JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

type Document struct {
	Nodes []dynamo.NodeInput
	Links []dynamo.LinkInput
}

type wireDocument struct {
	Nodes []wireNode `json:"nodes" yaml:"nodes"`
	Links []wireLink `json:"links,omitempty" yaml:"links,omitempty"`
}

type wireNode struct {
	ID         string                      `json:"id" yaml:"id"`
	X          *float64                    `json:"x,omitempty" yaml:"x,omitempty"`
	Y          *float64                    `json:"y,omitempty" yaml:"y,omitempty"`
	Properties *dynamo.NodePropertiesInput `json:"physicalProperties,omitempty" yaml:"physicalProperties,omitempty"`
	Category   string                      `json:"category,omitempty" yaml:"category,omitempty"`
	Pinned     bool                        `json:"pinned,omitempty" yaml:"pinned,omitempty"`
}

type wireLink struct {
	ID         string                      `json:"id,omitempty" yaml:"id,omitempty"`
	SourceID   string                      `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`
	TargetID   string                      `json:"targetId,omitempty" yaml:"targetId,omitempty"`
	Source     string                      `json:"source,omitempty" yaml:"source,omitempty"`
	Target     string                      `json:"target,omitempty" yaml:"target,omitempty"`
	Properties *dynamo.LinkPropertiesInput `json:"physicalProperties,omitempty" yaml:"physicalProperties,omitempty"`
}

var (
	ErrMissingNodeID   = errors.New("graphio: node without id")
	ErrMissingEndpoint = errors.New("graphio: link without source or target")
)

func Read(r io.Reader, f Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var w wireDocument
	if f == YAML {
		err = yaml.Unmarshal(data, &w)
	} else {
		err = json.Unmarshal(data, &w)
	}
	if err != nil {
		return nil, fmt.Errorf("graphio: decode: %w", err)
	}
	return w.document()
}

func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, FormatOf(path))
}

func (w wireDocument) document() (*Document, error) {
	doc := &Document{
		Nodes: make([]dynamo.NodeInput, 0, len(w.Nodes)),
		Links: make([]dynamo.LinkInput, 0, len(w.Links)),
	}
	for i, n := range w.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w (index %d)", ErrMissingNodeID, i)
		}
		doc.Nodes = append(doc.Nodes, dynamo.NodeInput{
			ID:         n.ID,
			X:          n.X,
			Y:          n.Y,
			Properties: n.Properties,
			Category:   n.Category,
			Pinned:     n.Pinned,
		})
	}
	for i, l := range w.Links {
		src := firstNonEmpty(l.SourceID, l.Source)
		dst := firstNonEmpty(l.TargetID, l.Target)
		if src == "" || dst == "" {
			return nil, fmt.Errorf("%w (index %d)", ErrMissingEndpoint, i)
		}
		doc.Links = append(doc.Links, dynamo.LinkInput{
			ID:         l.ID,
			SourceID:   src,
			TargetID:   dst,
			Properties: l.Properties,
		})
	}
	return doc, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Write encodes doc with sourceId/targetId keys.
func Write(w io.Writer, doc *Document, f Format) error {
	wd := wireDocument{
		Nodes: make([]wireNode, len(doc.Nodes)),
		Links: make([]wireLink, len(doc.Links)),
	}
	for i, n := range doc.Nodes {
		wd.Nodes[i] = wireNode{ID: n.ID, X: n.X, Y: n.Y, Properties: n.Properties, Category: n.Category, Pinned: n.Pinned}
	}
	for i, l := range doc.Links {
		wd.Links[i] = wireLink{ID: l.ID, SourceID: l.SourceID, TargetID: l.TargetID, Properties: l.Properties}
	}

	if f == YAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(wd); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(wd)
}

// WriteLayout encodes a full export as indented JSON.
func WriteLayout(w io.Writer, snap dynamo.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func ReadLayout(r io.Reader) (dynamo.Snapshot, error) {
	var snap dynamo.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return dynamo.Snapshot{}, fmt.Errorf("graphio: decode layout: %w", err)
	}
	return snap, nil
}

// WithPositions returns a copy of doc whose nodes start at the positions
// recorded in pos. Nodes missing from pos keep their own coordinates.
func WithPositions(doc *Document, pos map[string][2]float64) *Document {
	out := &Document{
		Nodes: make([]dynamo.NodeInput, len(doc.Nodes)),
		Links: doc.Links,
	}
	for i, n := range doc.Nodes {
		if p, ok := pos[n.ID]; ok {
			n.X, n.Y = dynamo.Float(p[0]), dynamo.Float(p[1])
		}
		out.Nodes[i] = n
	}
	return out
}
