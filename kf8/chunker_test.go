package kf8

import "testing"

func TestTagAidsInsertsAttributeAndCapturesID(t *testing.T) {
	c := NewChunker()
	html := []byte(`<div id="foo"><span>hi</span></div>`)
	tagged, ids := c.tagAids(html)

	want := `<div aid="0000" id="foo"><span aid="0001">hi</span></div>`
	if string(tagged) != want {
		t.Errorf("tagAids output = %q, want %q", tagged, want)
	}
	if ids["foo"] != "0000" {
		t.Errorf("ids[foo] = %q, want %q", ids["foo"], "0000")
	}
}

func TestTagAidsSkipsNonAidableTags(t *testing.T) {
	c := NewChunker()
	html := []byte(`<em>text</em>`)
	tagged, ids := c.tagAids(html)
	if string(tagged) != string(html) {
		t.Errorf("tagAids should leave non-aidable tags unchanged: got %q", tagged)
	}
	if len(ids) != 0 {
		t.Errorf("expected no captured ids, got %v", ids)
	}
}

func TestTagAidsSkipsClosingTagsAndComments(t *testing.T) {
	c := NewChunker()
	html := []byte(`<!-- comment --><p>x</p>`)
	tagged, _ := c.tagAids(html)
	want := `<!-- comment --><p aid="0000">x</p>`
	if string(tagged) != want {
		t.Errorf("tagAids = %q, want %q", tagged, want)
	}
}

func TestAidEncodeIsDeterministicAcrossChunkers(t *testing.T) {
	c1 := NewChunker()
	c2 := NewChunker()
	html := []byte(`<div id="a"><p id="b">x</p></div>`)

	_, ids1 := c1.tagAids(html)
	_, ids2 := c2.tagAids(html)
	if ids1["a"] != ids2["a"] || ids1["b"] != ids2["b"] {
		t.Errorf("aid assignment not deterministic: %v vs %v", ids1, ids2)
	}
}

func TestAddChapterAppendsSkeletonAndFragment(t *testing.T) {
	c := NewChunker()
	c.AddChapter(0, []byte(`<p>hello</p>`))

	if len(c.Skeletons) != 1 || len(c.Fragments) != 1 {
		t.Fatalf("got %d skeletons, %d fragments, want 1, 1", len(c.Skeletons), len(c.Fragments))
	}
	skel := c.Skeletons[0]
	if skel.FileNumber != 0 || skel.FragmentCount != 1 || skel.Start != 0 {
		t.Errorf("skeleton = %+v", skel)
	}
	if skel.Length != len(c.Stream) {
		t.Errorf("skeleton.Length = %d, want %d (full stream, single chapter)", skel.Length, len(c.Stream))
	}
	frag := c.Fragments[0]
	if frag.FileNumber != 0 || frag.SequenceNum != 0 {
		t.Errorf("fragment = %+v", frag)
	}
}

func TestAddChapterAssignsIncreasingAidsAcrossChapters(t *testing.T) {
	c := NewChunker()
	c.AddChapter(0, []byte(`<div id="a">one</div>`))
	c.AddChapter(1, []byte(`<p id="b">two</p>`))

	if c.IDToAid["a"] == "" || c.IDToAid["b"] == "" {
		t.Fatalf("expected aids for both ids, got %v", c.IDToAid)
	}
	if c.IDToAid["a"] == c.IDToAid["b"] {
		t.Errorf("expected distinct aids, both were %q", c.IDToAid["a"])
	}
}

func TestBuildAidMapFromStreamAssignsSequenceNumbers(t *testing.T) {
	c := NewChunker()
	c.AddChapter(0, []byte(`<div id="a">one</div>`))
	c.AddChapter(1, []byte(`<p id="b">two</p>`))

	aidMap := c.BuildAidMapFromStream()
	entry0, ok := aidMap[c.IDToAid["a"]]
	if !ok {
		t.Fatalf("missing aid map entry for %q", c.IDToAid["a"])
	}
	if entry0.SequenceNum != 0 {
		t.Errorf("entry for chapter 0's aid has SequenceNum %d, want 0", entry0.SequenceNum)
	}
	if entry0.OffsetInChunk < 0 || entry0.OffsetInChunk >= c.Fragments[0].Length {
		t.Errorf("entry0.OffsetInChunk = %d out of chapter 0's fragment bounds [0,%d)", entry0.OffsetInChunk, c.Fragments[0].Length)
	}

	entry1, ok := aidMap[c.IDToAid["b"]]
	if !ok {
		t.Fatalf("missing aid map entry for %q", c.IDToAid["b"])
	}
	if entry1.SequenceNum != 1 {
		t.Errorf("entry for chapter 1's aid has SequenceNum %d, want 1", entry1.SequenceNum)
	}
}

func TestDeferPlaceholderAndPatchPendingRefs(t *testing.T) {
	c := NewChunker()
	buf := []byte("prefix-")
	href := "chapter2.html#sectionA"
	buf = c.DeferPlaceholder(buf, href)

	if len(c.Pending) != 1 {
		t.Fatalf("got %d pending refs, want 1", len(c.Pending))
	}
	if c.Pending[0].WriteOffset != len("prefix-") {
		t.Errorf("WriteOffset = %d, want %d", c.Pending[0].WriteOffset, len("prefix-"))
	}

	hrefToAid := map[string]AidEntry{href: {Aid: "0005", OffsetInChunk: 77}}
	seqOf := map[string]int{"0005": 3}
	PatchPendingRefs(buf, c.Pending, hrefToAid, seqOf)

	fid, off, err := DecodePlaceholder(string(buf[len("prefix-"):]))
	if err != nil {
		t.Fatalf("DecodePlaceholder: %v", err)
	}
	if fid != 3 || off != 77 {
		t.Errorf("DecodePlaceholder = %d, %d, want 3, 77", fid, off)
	}
}

func TestPatchPendingRefsLeavesUnresolvedHrefUntouched(t *testing.T) {
	c := NewChunker()
	buf := c.DeferPlaceholder(nil, "missing.html")
	original := append([]byte{}, buf...)

	PatchPendingRefs(buf, c.Pending, map[string]AidEntry{}, map[string]int{})
	if string(buf) != string(original) {
		t.Errorf("expected placeholder to be left unpatched when href has no aid entry")
	}
}
