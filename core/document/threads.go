package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CommentThread groups the comments attached to one location in a document.
type CommentThread struct {
	ID       string
	Comments []Comment
	Extra    map[string]json.RawMessage
}

// Comment carries an id unique within its thread; all other fields are
// opaque to the merge and round-trip untouched.
type Comment struct {
	ID    int
	Extra map[string]json.RawMessage
}

func (t *CommentThread) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if err := extractField(fields, "id", &t.ID); err != nil {
		return err
	}
	if err := extractField(fields, "comments", &t.Comments); err != nil {
		return err
	}
	if len(fields) > 0 {
		t.Extra = fields
	}
	return nil
}

func (t CommentThread) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(t.Extra)+2)
	for k, v := range t.Extra {
		out[k] = v
	}
	if err := insertField(out, "id", t.ID, true); err != nil {
		return nil, err
	}
	comments := t.Comments
	if comments == nil {
		comments = []Comment{}
	}
	if err := insertField(out, "comments", comments, true); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if err := extractField(fields, "id", &c.ID); err != nil {
		return err
	}
	if len(fields) > 0 {
		c.Extra = fields
	}
	return nil
}

func (c Comment) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Extra)+1)
	for k, v := range c.Extra {
		out[k] = v
	}
	if err := insertField(out, "id", c.ID, true); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// ParseThreads decodes a comment-thread file (a JSON array of threads).
func ParseThreads(data []byte) ([]CommentThread, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []CommentThread{}, nil
	}

	var threads []CommentThread
	if err := strictUnmarshal(data, &threads); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return threads, nil
}

// MarshalThreads serializes a thread list back to its on-disk form.
func MarshalThreads(threads []CommentThread) ([]byte, error) {
	if threads == nil {
		threads = []CommentThread{}
	}
	return marshalIndented(threads)
}
