package merge

import (
	"strings"
)

// ResolveKeepOurs keeps the local revision unconditionally. It serves both
// as an explicit ignore-conflicts policy for derived files and as the
// universal fallback for unrecognized paths.
func ResolveKeepOurs(ours, _ string) (string, error) {
	return ours, nil
}

// ResolveSetUnion merges two line-oriented stores as a set: the union of
// non-empty lines from both sides, ours's lines first, new lines from
// theirs in their order of appearance. Line order carries no meaning in a
// set store, so no ordering guarantee is made beyond determinism.
func ResolveSetUnion(ours, theirs string) (string, error) {
	union := make([]string, 0)
	seen := make(map[string]bool)

	for _, line := range append(splitLines(ours), splitLines(theirs)...) {
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		union = append(union, line)
	}

	return strings.Join(union, "\n"), nil
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
