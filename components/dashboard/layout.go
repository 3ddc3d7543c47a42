package dashboard

import "sort"

// PlaceNewWidget picks the grid slot for the next widget to add. The scan is
// greedy and row-major: fill the topmost row first (appending after the
// rightmost tile, then falling back to the first gap wide enough, including
// the gap before the first tile), and only then start a new row beneath
// everything currently placed. Placement never overlaps existing default-size
// tiles and never produces x+w > GridColumns.
func PlaceNewWidget(existing []Widget) (x, y int) {
	if len(existing) == 0 {
		return 0, 0
	}

	topRow := existing[0].Y
	for _, w := range existing[1:] {
		if w.Y < topRow {
			topRow = w.Y
		}
	}
	var topRowWidgets []Widget
	usedWidth := 0
	for _, w := range existing {
		if w.Y == topRow {
			topRowWidgets = append(topRowWidgets, w)
			usedWidth += widthOr(w.W)
		}
	}

	if usedWidth+DefaultWidth <= GridColumns {
		rightmost := 0
		for _, w := range topRowWidgets {
			if end := w.X + widthOr(w.W); end > rightmost {
				rightmost = end
			}
		}
		if rightmost+DefaultWidth <= GridColumns {
			return rightmost, topRow
		}
		if gap, ok := firstGap(topRowWidgets); ok {
			return gap, topRow
		}
		// Width check passed but no single gap fits; defensive fall-through
		// to a fresh row.
	}

	return 0, rowBelow(existing)
}

// firstGap scans a row's tiles left to right for the first gap at least
// DefaultWidth wide, including the stretch before the first tile.
func firstGap(row []Widget) (int, bool) {
	sorted := make([]Widget, len(row))
	copy(sorted, row)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	if sorted[0].X >= DefaultWidth {
		return 0, true
	}
	for i := 0; i < len(sorted)-1; i++ {
		end := sorted[i].X + widthOr(sorted[i].W)
		if sorted[i+1].X-end >= DefaultWidth {
			return end, true
		}
	}
	return 0, false
}

// rowBelow returns the first free row under every placed widget.
func rowBelow(widgets []Widget) int {
	maxY := 0
	for _, w := range widgets {
		h := w.H
		if h <= 0 {
			h = DefaultHeight
		}
		if bottom := w.Y + h; bottom > maxY {
			maxY = bottom
		}
	}
	return maxY
}

func widthOr(w int) int {
	if w <= 0 {
		return DefaultWidth
	}
	return w
}

// ApplyLayoutChange reconciles a drag/resize report from the grid surface
// back into the widget list. Widgets are matched by id; matched widgets take
// the reported position and size, unmatched widgets keep their last known
// position, and layout items with no matching widget are ignored. The
// operation is idempotent and touches nothing beyond x/y/w/h.
func ApplyLayoutChange(widgets []Widget, items []LayoutItem) []Widget {
	if len(widgets) == 0 || len(items) == 0 {
		return widgets
	}
	index := make(map[string]LayoutItem, len(items))
	for _, item := range items {
		index[item.ID] = item
	}
	out := make([]Widget, len(widgets))
	copy(out, widgets)
	for i := range out {
		if item, ok := index[out[i].ID]; ok {
			out[i].X = item.X
			out[i].Y = item.Y
			out[i].W = item.W
			out[i].H = item.H
		}
	}
	return out
}

// RemoveWidget drops the widget with the given id, preserving the relative
// order of the rest. Positions are not compacted; gaps left behind are only
// reconsidered by the next placement.
func RemoveWidget(widgets []Widget, id string) []Widget {
	out := make([]Widget, 0, len(widgets))
	for _, w := range widgets {
		if w.ID != id {
			out = append(out, w)
		}
	}
	return out
}

// SortForRender orders widgets by (y, x) for the render path; persisted order
// stays insertion order.
func SortForRender(widgets []Widget) []Widget {
	out := make([]Widget, len(widgets))
	copy(out, widgets)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
