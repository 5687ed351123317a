package timeline

import "testing"

func TestNormalizeEdges_DropsMissingClip(t *testing.T) {
	v := testView()
	v.SetClip(testClip("a", "v1", 0, 90))

	edges := NormalizeEdges(v, []Edge{
		{ClipID: "a", Type: EdgeOut, Trim: TrimRipple},
		{ClipID: "gone", Type: EdgeIn, Trim: TrimRipple},
	})
	if len(edges) != 1 || edges[0].ClipID != "a" {
		t.Errorf("NormalizeEdges = %v, want only edge on a", edges)
	}
}

func TestNormalizeEdges_ClosedGapAfterBecomesNextIn(t *testing.T) {
	v := testView()
	v.SetClip(testClip("a", "v1", 0, 90))
	v.SetClip(testClip("b", "v1", 90, 90)) // abuts a: gap after a is closed

	edges := NormalizeEdges(v, []Edge{{ClipID: "a", Type: EdgeGapAfter, Trim: TrimRipple}})
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	if edges[0].ClipID != "b" || edges[0].Type != EdgeIn {
		t.Errorf("normalized edge = %+v, want in-edge of b", edges[0])
	}
}

func TestNormalizeEdges_ClosedGapBeforeBecomesPrevOut(t *testing.T) {
	v := testView()
	v.SetClip(testClip("a", "v1", 0, 90))
	v.SetClip(testClip("b", "v1", 90, 90))

	edges := NormalizeEdges(v, []Edge{{ClipID: "b", Type: EdgeGapBefore, Trim: TrimRoll}})
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	if edges[0].ClipID != "a" || edges[0].Type != EdgeOut || edges[0].Trim != TrimRoll {
		t.Errorf("normalized edge = %+v, want out-edge of a (roll)", edges[0])
	}
}

func TestNormalizeEdges_OpenGapSurvives(t *testing.T) {
	v := testView()
	v.SetClip(testClip("a", "v1", 0, 90))
	v.SetClip(testClip("b", "v1", 130, 90)) // 40 frame gap after a

	edges := NormalizeEdges(v, []Edge{
		{ClipID: "a", Type: EdgeGapAfter, Trim: TrimRipple},
		{ClipID: "b", Type: EdgeGapBefore, Trim: TrimRipple},
	})
	if len(edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(edges))
	}
	if edges[0].Type != EdgeGapAfter || edges[1].Type != EdgeGapBefore {
		t.Errorf("open gap edges were rewritten: %v", edges)
	}
}

func TestNormalizeEdges_GapBeforeAtOriginBecomesIn(t *testing.T) {
	v := testView()
	v.SetClip(testClip("a", "v1", 0, 90)) // no space before a

	edges := NormalizeEdges(v, []Edge{{ClipID: "a", Type: EdgeGapBefore, Trim: TrimRipple}})
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	if edges[0].ClipID != "a" || edges[0].Type != EdgeIn {
		t.Errorf("normalized edge = %+v, want in-edge of a", edges[0])
	}
}
