package kf8

import "testing"

func TestPlaceholderRoundTrip(t *testing.T) {
	cases := []struct{ fid, off uint32 }{
		{0, 0},
		{1, 1},
		{42, 1000},
		{9999, 9999999},
	}
	for _, c := range cases {
		p := EncodePlaceholder(c.fid, c.off)
		if len(p) != placeholderLen {
			t.Fatalf("EncodePlaceholder(%d,%d) length = %d, want %d", c.fid, c.off, len(p), placeholderLen)
		}
		fid, off, err := DecodePlaceholder(p)
		if err != nil {
			t.Fatalf("DecodePlaceholder(%q): %v", p, err)
		}
		if fid != c.fid || off != c.off {
			t.Errorf("round trip mismatch: got %d,%d want %d,%d", fid, off, c.fid, c.off)
		}
	}
}

func TestDecodePlaceholderWrongLength(t *testing.T) {
	if _, _, err := DecodePlaceholder("too short"); err == nil {
		t.Fatal("expected error for wrong-length placeholder")
	}
}

func TestDecodePlaceholderMissingPrefix(t *testing.T) {
	bad := "xxxxxxxxxxxxxxx0000:off:0000000000"[:placeholderLen]
	if _, _, err := DecodePlaceholder(bad); err == nil {
		t.Fatal("expected error for missing prefix")
	}
}

func TestDecodePlaceholderMissingOffMarker(t *testing.T) {
	bad := "kindle:pos:fid:0000Xoff:0000000000"
	if _, _, err := DecodePlaceholder(bad[:placeholderLen]); err == nil {
		t.Fatal("expected error for missing :off: marker")
	}
}

func TestBuildAidMap(t *testing.T) {
	text := []byte(`<p aid="0000" id="intro">hi</p><div aid="0001">no id</div>`)
	aidMap := BuildAidMap(text, nil)
	if len(aidMap) != 2 {
		t.Fatalf("got %d aid entries, want 2", len(aidMap))
	}
	e0 := aidMap["0000"]
	if e0.ID != "intro" {
		t.Errorf("aid 0000's ID = %q, want %q", e0.ID, "intro")
	}
	e1 := aidMap["0001"]
	if e1.ID != "" {
		t.Errorf("aid 0001's ID = %q, want empty", e1.ID)
	}
}

func TestRewriteKindleRefsPicksNearestPrecedingAid(t *testing.T) {
	frag := Frag{SequenceNum: 5, FileNumber: 2}
	fragsBySeq := map[int]Frag{5: frag}
	aidMap := map[string]AidEntry{
		"AID1": {Aid: "AID1", SequenceNum: 5, OffsetInChunk: 0, ID: "secA"},
		"AID2": {Aid: "AID2", SequenceNum: 5, OffsetInChunk: 50, ID: ""},
	}
	fileNumberOf := func(seq int) int { return fragsBySeq[seq].FileNumber }

	placeholder := EncodePlaceholder(5, 10)
	html := []byte("before " + placeholder + " after")
	out, err := RewriteKindleRefs(html, fragsBySeq, aidMap, fileNumberOf)
	if err != nil {
		t.Fatalf("RewriteKindleRefs: %v", err)
	}
	want := "before part0002.html#secA after"
	if string(out) != want {
		t.Errorf("RewriteKindleRefs = %q, want %q", out, want)
	}
}

func TestRewriteKindleRefsFallsBackToAidWhenNoID(t *testing.T) {
	frag := Frag{SequenceNum: 5, FileNumber: 2}
	fragsBySeq := map[int]Frag{5: frag}
	aidMap := map[string]AidEntry{
		"AID1": {Aid: "AID1", SequenceNum: 5, OffsetInChunk: 0, ID: "secA"},
		"AID2": {Aid: "AID2", SequenceNum: 5, OffsetInChunk: 50, ID: ""},
	}
	fileNumberOf := func(seq int) int { return fragsBySeq[seq].FileNumber }

	placeholder := EncodePlaceholder(5, 60)
	html := []byte(placeholder)
	out, err := RewriteKindleRefs(html, fragsBySeq, aidMap, fileNumberOf)
	if err != nil {
		t.Fatalf("RewriteKindleRefs: %v", err)
	}
	want := "part0002.html#AID2"
	if string(out) != want {
		t.Errorf("RewriteKindleRefs = %q, want %q", out, want)
	}
}

func TestRewriteKindleRefsUnknownFragmentLeftUntouched(t *testing.T) {
	placeholder := EncodePlaceholder(99, 0)
	html := []byte(placeholder)
	out, err := RewriteKindleRefs(html, map[int]Frag{}, map[string]AidEntry{}, func(int) int { return 0 })
	if err != nil {
		t.Fatalf("RewriteKindleRefs: %v", err)
	}
	if string(out) != placeholder {
		t.Errorf("expected unresolvable placeholder to pass through unchanged, got %q", out)
	}
}

func TestSortedAidEntriesAndResolveFilepos(t *testing.T) {
	aidMap := map[string]AidEntry{
		"c": {Aid: "c", AbsoluteOffset: 300},
		"a": {Aid: "a", AbsoluteOffset: 100},
		"b": {Aid: "b", AbsoluteOffset: 200},
	}
	sorted := SortedAidEntries(aidMap)
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].AbsoluteOffset > sorted[i].AbsoluteOffset {
			t.Fatalf("SortedAidEntries not sorted: %v", sorted)
		}
	}

	e, ok := ResolveFilepos(sorted, 250)
	if !ok || e.Aid != "b" {
		t.Errorf("ResolveFilepos(250) = %v, %v, want b, true", e, ok)
	}

	e, ok = ResolveFilepos(sorted, 50)
	if ok {
		t.Errorf("ResolveFilepos(50) = %v, %v, want not ok (before all entries)", e, ok)
	}

	e, ok = ResolveFilepos(sorted, 1000)
	if !ok || e.Aid != "c" {
		t.Errorf("ResolveFilepos(1000) = %v, %v, want c, true", e, ok)
	}
}
