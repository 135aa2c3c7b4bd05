package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SuggestionRecord is one keyed entry in a suggestion store: the set of
// pending suggestions for a cell plus the time of the last update.
type SuggestionRecord struct {
	LastUpdatedDate int64
	Suggestions     []Suggestion
	Extra           map[string]json.RawMessage
}

// Suggestion proposes replacing one value with another. The pair
// (OldValue, NewValue) is the identity used for deduplication.
type Suggestion struct {
	OldValue string
	NewValue string
	Extra    map[string]json.RawMessage
}

func (r *SuggestionRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if err := extractField(fields, "lastUpdatedDate", &r.LastUpdatedDate); err != nil {
		return err
	}
	if err := extractField(fields, "suggestions", &r.Suggestions); err != nil {
		return err
	}
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

func (r SuggestionRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Extra)+2)
	for k, v := range r.Extra {
		out[k] = v
	}
	if err := insertField(out, "lastUpdatedDate", r.LastUpdatedDate, true); err != nil {
		return nil, err
	}
	suggestions := r.Suggestions
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	if err := insertField(out, "suggestions", suggestions, true); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (s *Suggestion) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if err := extractField(fields, "oldValue", &s.OldValue); err != nil {
		return err
	}
	if err := extractField(fields, "newValue", &s.NewValue); err != nil {
		return err
	}
	if len(fields) > 0 {
		s.Extra = fields
	}
	return nil
}

func (s Suggestion) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+2)
	for k, v := range s.Extra {
		out[k] = v
	}
	if err := insertField(out, "oldValue", s.OldValue, true); err != nil {
		return nil, err
	}
	if err := insertField(out, "newValue", s.NewValue, true); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// ParseSuggestions decodes a suggestion store: a JSON object mapping keys
// to records. Blank input is the empty store.
func ParseSuggestions(data []byte) (map[string]SuggestionRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]SuggestionRecord{}, nil
	}

	var store map[string]SuggestionRecord
	if err := strictUnmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if store == nil {
		store = map[string]SuggestionRecord{}
	}
	return store, nil
}

// MarshalSuggestions serializes a suggestion store back to its on-disk form.
func MarshalSuggestions(store map[string]SuggestionRecord) ([]byte, error) {
	if len(store) == 0 {
		return []byte("{}"), nil
	}
	return marshalIndented(store)
}
