package merge

import (
	"sort"

	"github.com/adalundhe/loom/core/document"
)

// ThreadResolver merges two revisions of the comment-thread store. Threads
// are keyed by id; within a shared thread, comments merge first-writer-wins
// on comment id (a comment already present from ours is never overwritten)
// and re-sort ascending by id. Malformed input propagates.
type ThreadResolver struct{}

func (r *ThreadResolver) Resolve(ours, theirs string) (string, error) {
	ourThreads, err := document.ParseThreads([]byte(ours))
	if err != nil {
		return "", err
	}

	theirThreads, err := document.ParseThreads([]byte(theirs))
	if err != nil {
		return "", err
	}

	merged := mergeThreads(ourThreads, theirThreads)

	out, err := document.MarshalThreads(merged)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func mergeThreads(ours, theirs []document.CommentThread) []document.CommentThread {
	result := make([]document.CommentThread, len(ours))
	copy(result, ours)

	position := make(map[string]int, len(ours))
	for i, thread := range ours {
		position[thread.ID] = i
	}

	for _, theirThread := range theirs {
		i, ok := position[theirThread.ID]
		if !ok {
			position[theirThread.ID] = len(result)
			result = append(result, theirThread)
			continue
		}

		result[i].Comments = mergeComments(result[i].Comments, theirThread.Comments)
	}

	return result
}

func mergeComments(ours, theirs []document.Comment) []document.Comment {
	merged := make([]document.Comment, len(ours))
	copy(merged, ours)

	present := make(map[int]bool, len(ours))
	for _, comment := range ours {
		present[comment.ID] = true
	}

	for _, comment := range theirs {
		if present[comment.ID] {
			continue
		}
		present[comment.ID] = true
		merged = append(merged, comment)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ID < merged[j].ID
	})

	return merged
}
