package merge

import (
	"log/slog"

	"github.com/adalundhe/loom/core/document"
)

// CellResolver merges two revisions of a structured cell document. Cells
// present on both sides keep ours's position and get a reconciled edit
// history; cells unique to theirs are spliced in next to their original
// neighbors. Malformed input propagates so the dispatcher can skip the
// file.
type CellResolver struct {
	log *slog.Logger
}

func (r *CellResolver) Resolve(ours, theirs string) (string, error) {
	ourDoc, err := document.ParseDocument([]byte(ours))
	if err != nil {
		return "", err
	}

	theirDoc, err := document.ParseDocument([]byte(theirs))
	if err != nil {
		return "", err
	}

	merged := r.mergeDocuments(ourDoc, theirDoc)

	out, err := merged.Marshal()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (r *CellResolver) mergeDocuments(ours, theirs *document.Document) *document.Document {
	theirByID := r.indexCells(theirs.Cells)

	result := make([]document.Cell, 0, len(ours.Cells))
	for _, ourCell := range ours.Cells {
		theirCell, ok := theirByID[ourCell.ID]
		if !ok {
			result = append(result, ourCell.Clone())
			continue
		}

		result = append(result, mergeCell(ourCell, theirCell))
		delete(theirByID, ourCell.ID)
	}

	result = r.placeForeignCells(result, theirs.Cells, theirByID)

	// Document metadata stays ours verbatim; theirs is discarded (local
	// authority over document-level metadata).
	return &document.Document{Cells: result, Metadata: ours.Metadata}
}

// indexCells maps theirs's cells by id. Cells without a stable id cannot
// participate in the merge and are dropped with a warning.
func (r *CellResolver) indexCells(cells []document.Cell) map[string]document.Cell {
	byID := make(map[string]document.Cell, len(cells))
	for _, cell := range cells {
		if cell.ID == "" {
			r.log.Warn("dropping cell without stable id", "label", cell.Metadata.Label)
			continue
		}
		byID[cell.ID] = cell
	}
	return byID
}

// mergeCell reconciles one cell present on both sides: the histories are
// unioned and the winning value selected from the reconciled history. A
// cell with no local history but remote edits takes the remote current
// value, matching the no-history-yet case.
func mergeCell(ourCell, theirCell document.Cell) document.Cell {
	ourEdits := ourCell.Metadata.Edits
	theirEdits := theirCell.Metadata.Edits

	mergedEdits := MergeEdits(ourEdits, theirEdits)

	var finalValue string
	if len(ourEdits) == 0 && len(theirEdits) > 0 {
		finalValue = theirCell.Value
	} else {
		finalValue = SelectWinningValue(ourEdits, theirEdits, mergedEdits, ourCell.Value)
	}

	merged := ourCell.Clone()
	merged.Value = finalValue
	merged.Metadata.Edits = mergedEdits
	return merged
}

// placeForeignCells splices cells unique to theirs into result, anchored
// to their original neighbors. Processing them in their original relative
// order lets a chain of consecutive foreign cells resolve one after the
// other.
func (r *CellResolver) placeForeignCells(
	result []document.Cell,
	theirCells []document.Cell,
	remaining map[string]document.Cell,
) []document.Cell {
	ids := cellIDs(result)
	theirIDs := cellIDs(theirCells)

	for i, cell := range theirCells {
		if _, ok := remaining[cell.ID]; !ok {
			continue
		}

		anchors := AnchorsAt(theirIDs, i)
		pos, anchored := ResolveAnchoredPosition(ids, anchors)
		if !anchored {
			r.log.Debug("no anchor placed yet, appending cell", "id", cell.ID)
		}

		result = insertCell(result, pos, cell.Clone())
		ids = insertID(ids, pos, cell.ID)
		delete(remaining, cell.ID)
	}

	return result
}

func cellIDs(cells []document.Cell) []string {
	ids := make([]string, len(cells))
	for i, cell := range cells {
		ids[i] = cell.ID
	}
	return ids
}

func insertCell(cells []document.Cell, pos int, cell document.Cell) []document.Cell {
	cells = append(cells, document.Cell{})
	copy(cells[pos+1:], cells[pos:])
	cells[pos] = cell
	return cells
}

func insertID(ids []string, pos int, id string) []string {
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	return ids
}
