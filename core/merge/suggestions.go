package merge

import (
	"log/slog"

	"github.com/adalundhe/loom/core/document"
)

// SuggestionResolver merges two revisions of the suggestion store. Records
// are keyed; the record with the strictly later lastUpdatedDate wins a key
// (ties keep the current choice), and the suggestion lists from both sides
// are always unioned into the winner, deduplicated on (oldValue, newValue).
//
// Unlike the structured-cell resolver, unparsable input recovers to the
// empty store instead of propagating: suggestions are regenerable advice,
// so losing them beats losing the merge.
type SuggestionResolver struct {
	log *slog.Logger
}

func (r *SuggestionResolver) Resolve(ours, theirs string) (string, error) {
	ourStore, err := document.ParseSuggestions([]byte(ours))
	if err != nil {
		r.log.Warn("unparsable suggestion store, recovering to empty", "side", "ours", "error", err)
		return "{}", nil
	}

	theirStore, err := document.ParseSuggestions([]byte(theirs))
	if err != nil {
		r.log.Warn("unparsable suggestion store, recovering to empty", "side", "theirs", "error", err)
		return "{}", nil
	}

	merged := mergeSuggestionStores(ourStore, theirStore)

	out, err := document.MarshalSuggestions(merged)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func mergeSuggestionStores(ours, theirs map[string]document.SuggestionRecord) map[string]document.SuggestionRecord {
	result := make(map[string]document.SuggestionRecord, len(ours)+len(theirs))
	for key, record := range ours {
		result[key] = record
	}

	for key, theirRecord := range theirs {
		ourRecord, ok := result[key]
		if !ok {
			result[key] = theirRecord
			continue
		}

		result[key] = mergeSuggestionRecords(ourRecord, theirRecord)
	}

	return result
}

func mergeSuggestionRecords(ours, theirs document.SuggestionRecord) document.SuggestionRecord {
	chosen, other := ours, theirs
	if theirs.LastUpdatedDate > ours.LastUpdatedDate {
		chosen, other = theirs, ours
	}

	chosen.Suggestions = unionSuggestions(chosen.Suggestions, other.Suggestions)
	return chosen
}

// unionSuggestions appends the suggestions from other that the chosen side
// does not already carry, identified by the (oldValue, newValue) pair,
// preserving first-seen order.
func unionSuggestions(chosen, other []document.Suggestion) []document.Suggestion {
	type suggestionKey struct {
		oldValue string
		newValue string
	}

	union := make([]document.Suggestion, 0, len(chosen)+len(other))
	seen := make(map[suggestionKey]bool, len(chosen)+len(other))

	for _, s := range append(append([]document.Suggestion{}, chosen...), other...) {
		key := suggestionKey{oldValue: s.OldValue, newValue: s.NewValue}
		if seen[key] {
			continue
		}
		seen[key] = true
		union = append(union, s)
	}

	return union
}
