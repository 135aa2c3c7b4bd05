package merge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/adalundhe/loom/core/document"
)

// ResolveMetadata merges the project metadata file: a flat key union over
// both sides where ours wins any shared key. Keys present only in theirs
// are adopted, so a field added remotely survives the merge. Malformed
// input propagates.
func ResolveMetadata(ours, theirs string) (string, error) {
	ourFields, err := parseMetadataObject(ours)
	if err != nil {
		return "", err
	}

	theirFields, err := parseMetadataObject(theirs)
	if err != nil {
		return "", err
	}

	for key, value := range theirFields {
		if _, ok := ourFields[key]; !ok {
			ourFields[key] = value
		}
	}

	out, err := json.MarshalIndent(ourFields, "", "  ")
	if err != nil {
		return "", err
	}
	return string(append(out, '\n')), nil
}

func parseMetadataObject(text string) (map[string]json.RawMessage, error) {
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrMalformed, err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}
