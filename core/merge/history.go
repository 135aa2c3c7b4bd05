package merge

import (
	"sort"

	"github.com/adalundhe/loom/core/document"
)

// MergeEdits reconciles two edit histories into one: the union of both
// lists, deduplicated on the (timestamp, value) pair, ordered ascending
// by timestamp.
func MergeEdits(ours, theirs []document.Edit) []document.Edit {
	type editKey struct {
		timestamp int64
		value     string
	}

	merged := make([]document.Edit, 0, len(ours)+len(theirs))
	seen := make(map[editKey]bool, len(ours)+len(theirs))

	for _, edit := range append(append([]document.Edit{}, ours...), theirs...) {
		key := editKey{timestamp: edit.Timestamp, value: edit.Value}
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, edit)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})

	return merged
}

// SelectWinningValue picks the value a merged cell ends up with. The last
// entry of the reconciled history names the winning value; the authoritative
// provenance is whichever side's own latest edit carrying that exact value
// has the greater timestamp. Either side may have produced the value through
// a different edit event, so the sides are searched independently instead of
// trusting the overall latest timestamp.
//
// When neither side's history yields a match the fallback wins, which
// deliberately preserves an intentional empty string.
func SelectWinningValue(ourEdits, theirEdits, merged []document.Edit, fallback string) string {
	latest := lastEdit(merged)
	if latest == nil {
		return fallback
	}

	ourMatch := latestWithValue(ourEdits, latest.Value)
	theirMatch := latestWithValue(theirEdits, latest.Value)

	chosen := laterEdit(ourMatch, theirMatch)
	if chosen == nil {
		return fallback
	}
	return chosen.Value
}

func lastEdit(edits []document.Edit) *document.Edit {
	if len(edits) == 0 {
		return nil
	}
	return &edits[len(edits)-1]
}

// latestWithValue finds the latest-timestamped edit carrying exactly the
// given value, or nil.
func latestWithValue(edits []document.Edit, value string) *document.Edit {
	var match *document.Edit
	for i := range edits {
		if edits[i].Value != value {
			continue
		}
		if match == nil || edits[i].Timestamp > match.Timestamp {
			match = &edits[i]
		}
	}
	return match
}

// laterEdit returns whichever edit has the greater timestamp, treating a
// missing side as earlier. Ties keep ours.
func laterEdit(ours, theirs *document.Edit) *document.Edit {
	switch {
	case ours == nil:
		return theirs
	case theirs == nil:
		return ours
	case theirs.Timestamp > ours.Timestamp:
		return theirs
	default:
		return ours
	}
}
