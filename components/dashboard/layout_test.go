package dashboard

import "testing"

func TestPlaceNewWidgetEmptyGrid(t *testing.T) {
	x, y := PlaceNewWidget(nil)
	if x != 0 || y != 0 {
		t.Fatalf("expected origin, got (%d,%d)", x, y)
	}
}

func TestPlaceNewWidgetAppendsAfterRightmost(t *testing.T) {
	widgets := []Widget{
		{ID: "a", X: 0, Y: 0, W: 6, H: 4},
	}
	x, y := PlaceNewWidget(widgets)
	if x != 6 || y != 0 {
		t.Fatalf("expected (6,0), got (%d,%d)", x, y)
	}
}

func TestPlaceNewWidgetThirdStartsNewRow(t *testing.T) {
	widgets := []Widget{
		{ID: "a", X: 0, Y: 0, W: 6, H: 4},
		{ID: "b", X: 6, Y: 0, W: 6, H: 4},
	}
	x, y := PlaceNewWidget(widgets)
	if x != 0 || y != 4 {
		t.Fatalf("expected (0,4), got (%d,%d)", x, y)
	}
}

func TestPlaceNewWidgetFillsGapBeforeFirstTile(t *testing.T) {
	// Only the right half of the top row is occupied; the leading gap fits a
	// default tile.
	widgets := []Widget{
		{ID: "a", X: 6, Y: 0, W: 6, H: 4},
	}
	x, y := PlaceNewWidget(widgets)
	if x != 0 || y != 0 {
		t.Fatalf("expected leading gap (0,0), got (%d,%d)", x, y)
	}
}

func TestPlaceNewWidgetFillsInteriorGap(t *testing.T) {
	widgets := []Widget{
		{ID: "a", X: 0, Y: 0, W: 3, H: 4},
		{ID: "b", X: 9, Y: 0, W: 3, H: 4},
	}
	x, y := PlaceNewWidget(widgets)
	if x != 3 || y != 0 {
		t.Fatalf("expected interior gap (3,0), got (%d,%d)", x, y)
	}
}

func TestPlaceNewWidgetIgnoresLowerRows(t *testing.T) {
	// The scan only considers the topmost row; space on row 4 does not matter.
	widgets := []Widget{
		{ID: "a", X: 0, Y: 0, W: 6, H: 4},
		{ID: "b", X: 6, Y: 0, W: 6, H: 4},
		{ID: "c", X: 0, Y: 4, W: 6, H: 4},
	}
	x, y := PlaceNewWidget(widgets)
	if x != 0 || y != 8 {
		t.Fatalf("expected new row (0,8), got (%d,%d)", x, y)
	}
}

func TestPlaceNewWidgetTreatsZeroWidthAsDefault(t *testing.T) {
	widgets := []Widget{
		{ID: "a", X: 0, Y: 0, H: 4}, // W omitted, counts as DefaultWidth
	}
	x, y := PlaceNewWidget(widgets)
	if x != DefaultWidth || y != 0 {
		t.Fatalf("expected (%d,0), got (%d,%d)", DefaultWidth, x, y)
	}
}

func TestPlaceNewWidgetNeverOverflowsGrid(t *testing.T) {
	widgets := []Widget{
		{ID: "a", X: 0, Y: 0, W: 4, H: 4},
		{ID: "b", X: 4, Y: 0, W: 4, H: 4},
	}
	x, _ := PlaceNewWidget(widgets)
	if x+DefaultWidth > GridColumns {
		t.Fatalf("placement overflows grid: x=%d", x)
	}
}

func TestApplyLayoutChange(t *testing.T) {
	widgets := []Widget{
		{ID: "a", X: 0, Y: 0, W: 6, H: 4},
		{ID: "b", X: 6, Y: 0, W: 6, H: 4},
	}
	items := []LayoutItem{
		{ID: "b", X: 0, Y: 4, W: 12, H: 6},
		{ID: "ghost", X: 3, Y: 3, W: 3, H: 3},
	}
	out := ApplyLayoutChange(widgets, items)

	if out[0].X != 0 || out[0].Y != 0 {
		t.Fatalf("unmatched widget moved: %#v", out[0])
	}
	if out[1].X != 0 || out[1].Y != 4 || out[1].W != 12 || out[1].H != 6 {
		t.Fatalf("matched widget not updated: %#v", out[1])
	}
	if len(out) != 2 {
		t.Fatalf("ghost layout item created a widget: %d widgets", len(out))
	}
}

func TestApplyLayoutChangeIdempotent(t *testing.T) {
	widgets := []Widget{{ID: "a", X: 0, Y: 0, W: 6, H: 4}}
	items := []LayoutItem{{ID: "a", X: 6, Y: 2, W: 6, H: 4}}

	once := ApplyLayoutChange(widgets, items)
	twice := ApplyLayoutChange(once, items)
	if once[0].X != twice[0].X || once[0].Y != twice[0].Y || once[0].W != twice[0].W || once[0].H != twice[0].H {
		t.Fatalf("reapplying layout changed state: %#v vs %#v", once[0], twice[0])
	}
	if widgets[0].X != 0 {
		t.Fatalf("input slice mutated: %#v", widgets[0])
	}
}

func TestRemoveWidgetLeavesGap(t *testing.T) {
	widgets := []Widget{
		{ID: "a", X: 0, Y: 0, W: 6, H: 4},
		{ID: "b", X: 6, Y: 0, W: 6, H: 4},
	}
	out := RemoveWidget(widgets, "a")
	if len(out) != 1 || out[0].ID != "b" {
		t.Fatalf("unexpected widgets after remove: %#v", out)
	}
	if out[0].X != 6 {
		t.Fatalf("remaining widget was compacted: %#v", out[0])
	}

	// The gap is reused by the next placement.
	x, y := PlaceNewWidget(out)
	if x != 0 || y != 0 {
		t.Fatalf("expected gap reuse at (0,0), got (%d,%d)", x, y)
	}
}

func TestSortForRender(t *testing.T) {
	widgets := []Widget{
		{ID: "c", X: 6, Y: 4},
		{ID: "a", X: 6, Y: 0},
		{ID: "b", X: 0, Y: 0},
	}
	out := SortForRender(widgets)
	if out[0].ID != "b" || out[1].ID != "a" || out[2].ID != "c" {
		t.Fatalf("unexpected render order: %v %v %v", out[0].ID, out[1].ID, out[2].ID)
	}
	if widgets[0].ID != "c" {
		t.Fatalf("input order mutated")
	}
}
