// Package document defines the typed data model for the structured files
// loom merges: cell documents, comment threads, and suggestion stores.
// All parsing happens at this boundary; malformed input surfaces as
// ErrMalformed rather than producing a partially-typed structure.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed document")
	ErrEmptyInput  = errors.New("empty input")
	ErrUnknownKind = errors.New("unknown edit kind")
)

// EditKind categorizes who or what produced an edit.
type EditKind string

const (
	EditKindUser       EditKind = "user-edit"
	EditKindGenerated  EditKind = "generated"
	EditKindValidation EditKind = "validation"
)

// Edit is one timestamped change event in a cell's history.
type Edit struct {
	Value      string   `json:"value"`
	Timestamp  int64    `json:"timestamp"`
	TargetPath []string `json:"targetPath,omitempty"`
	Kind       EditKind `json:"kind,omitempty"`
	Author     string   `json:"author,omitempty"`
}

// Document is an ordered sequence of cells plus document-level metadata.
type Document struct {
	Cells    []Cell         `json:"cells"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Cell is the smallest addressable unit of a document: a stable id, the
// current value, and metadata carrying the edit history.
type Cell struct {
	ID       string       `json:"id"`
	Value    string       `json:"value"`
	Metadata CellMetadata `json:"metadata"`
}

// CellMetadata holds the known metadata fields and round-trips everything
// else untouched through Extra.
type CellMetadata struct {
	Kind  string
	Label string
	Edits []Edit
	Extra map[string]json.RawMessage
}

func (m *CellMetadata) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if err := extractField(fields, "kind", &m.Kind); err != nil {
		return err
	}
	if err := extractField(fields, "label", &m.Label); err != nil {
		return err
	}
	if err := extractField(fields, "edits", &m.Edits); err != nil {
		return err
	}

	if len(fields) > 0 {
		m.Extra = fields
	}
	return nil
}

func (m CellMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}

	if err := insertField(out, "kind", m.Kind, m.Kind != ""); err != nil {
		return nil, err
	}
	if err := insertField(out, "label", m.Label, m.Label != ""); err != nil {
		return nil, err
	}
	if err := insertField(out, "edits", m.Edits, m.Edits != nil); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

func extractField(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	delete(fields, key)
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

func insertField(out map[string]json.RawMessage, key string, v any, present bool) error {
	if !present {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	out[key] = raw
	return nil
}

// Clone returns a deep copy of the cell. The merge engine builds merged
// cells from clones so the parsed inputs stay immutable.
func (c *Cell) Clone() Cell {
	clone := *c
	clone.Metadata.Edits = cloneEdits(c.Metadata.Edits)
	if c.Metadata.Extra != nil {
		extra := make(map[string]json.RawMessage, len(c.Metadata.Extra))
		for k, v := range c.Metadata.Extra {
			extra[k] = v
		}
		clone.Metadata.Extra = extra
	}
	return clone
}

func cloneEdits(edits []Edit) []Edit {
	if edits == nil {
		return nil
	}
	out := make([]Edit, len(edits))
	copy(out, edits)
	return out
}

// ParseDocument decodes a cell document, validating shape at the boundary.
func ParseDocument(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, ErrEmptyInput)
	}

	var doc Document
	if err := strictUnmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc.Cells == nil {
		return nil, fmt.Errorf("%w: missing cells array", ErrMalformed)
	}

	return &doc, nil
}

// Marshal serializes the document back to its on-disk representation.
func (d *Document) Marshal() ([]byte, error) {
	return marshalIndented(d)
}

func strictUnmarshal(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func marshalIndented(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
