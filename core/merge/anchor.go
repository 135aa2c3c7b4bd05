package merge

// Anchors names the original neighbors of an element that exists on one
// side only: the ids immediately before and after it in its home sequence.
type Anchors struct {
	Predecessor string
	Successor   string
}

// AnchorsAt returns the anchors for position i within a sequence of ids.
// A missing neighbor is the empty string.
func AnchorsAt(ids []string, i int) Anchors {
	var a Anchors
	if i > 0 {
		a.Predecessor = ids[i-1]
	}
	if i < len(ids)-1 {
		a.Successor = ids[i+1]
	}
	return a
}

// ResolveAnchoredPosition determines where to splice an anchored element
// into result: immediately after its predecessor when that is already
// placed, else immediately before its successor, else at the end. The
// second return reports whether an anchor resolved.
//
// Callers must process foreign elements in their original relative order;
// a run of consecutive inserts then resolves correctly because each element
// after the first finds its immediately-preceding sibling already placed.
func ResolveAnchoredPosition(result []string, a Anchors) (int, bool) {
	if i := indexOf(result, a.Predecessor); i >= 0 {
		return i + 1, true
	}
	if i := indexOf(result, a.Successor); i >= 0 {
		return i, true
	}
	return len(result), false
}

func indexOf(ids []string, id string) int {
	if id == "" {
		return -1
	}
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}
