package book

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/chapters/ch1.html":   "chapters/ch1.html",
		"chapters\\ch1.html":   "chapters/ch1.html",
		"chapters//ch1.html":   "chapters/ch1.html",
		"ch1.html":             "ch1.html",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func buildTestResolver() *Resolver {
	r := NewResolver()
	n1 := &Node{Role: RoleParagraph, ID: "intro"}
	tree1 := &Tree{Root: &Node{Role: RoleRoot, Children: []*Node{n1}}}
	r.RegisterChapter("chapters/ch1.html", "ch1", tree1)

	n2 := &Node{Role: RoleHeading, ID: "sectionA"}
	tree2 := &Tree{Root: &Node{Role: RoleRoot, Children: []*Node{n2}}}
	r.RegisterChapter("chapters/ch2.html", "ch2", tree2)

	r.RegisterFilepos("chapters/ch1.html", []FileposEntry{
		{BytePos: 0, Node: n1},
		{BytePos: 1000, Node: n1},
	})
	return r
}

func TestResolveHrefSameChapterFragment(t *testing.T) {
	r := buildTestResolver()
	target, ok := r.ResolveHref("chapters/ch1.html", "#intro")
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if target.ChapterID != "ch1" || target.Node == nil || target.Node.ID != "intro" {
		t.Errorf("target = %+v", target)
	}
}

func TestResolveHrefSameChapterEmptyFragment(t *testing.T) {
	r := buildTestResolver()
	target, ok := r.ResolveHref("chapters/ch1.html", "#")
	if !ok {
		t.Fatal("expected resolution to succeed for whole-file target")
	}
	if target.ChapterID != "ch1" || target.Node != nil {
		t.Errorf("target = %+v, want whole-file (nil node)", target)
	}
}

func TestResolveHrefSameChapterUnknownFragment(t *testing.T) {
	r := buildTestResolver()
	if _, ok := r.ResolveHref("chapters/ch1.html", "#nope"); ok {
		t.Fatal("expected resolution to fail for unknown fragment")
	}
}

func TestResolveHrefCrossChapter(t *testing.T) {
	r := buildTestResolver()
	target, ok := r.ResolveHref("chapters/ch1.html", "ch2.html#sectionA")
	if !ok {
		t.Fatal("expected cross-chapter resolution to succeed")
	}
	if target.ChapterID != "ch2" || target.Node == nil || target.Node.ID != "sectionA" {
		t.Errorf("target = %+v", target)
	}
}

func TestResolveHrefCrossChapterWholeFile(t *testing.T) {
	r := buildTestResolver()
	target, ok := r.ResolveHref("chapters/ch1.html", "ch2.html")
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if target.ChapterID != "ch2" || target.Node != nil {
		t.Errorf("target = %+v, want whole-file", target)
	}
}

func TestResolveHrefUnknownChapter(t *testing.T) {
	r := buildTestResolver()
	if _, ok := r.ResolveHref("chapters/ch1.html", "ch99.html"); ok {
		t.Fatal("expected resolution to fail for an unregistered chapter")
	}
}

func TestResolveHrefFilepos(t *testing.T) {
	r := buildTestResolver()
	target, ok := r.ResolveHref("chapters/ignored.html", "ch1.html#filepos500")
	if !ok {
		t.Fatal("expected filepos resolution to succeed")
	}
	if target.ChapterID != "ch1" || target.Node == nil {
		t.Errorf("target = %+v", target)
	}
}

func TestResolveHrefFileposBeforeFirstEntry(t *testing.T) {
	r := buildTestResolver()
	// Register a chapter whose first filepos entry starts after 0.
	n := &Node{Role: RoleParagraph, ID: "late"}
	r.RegisterFilepos("chapters/ch3.html", []FileposEntry{{BytePos: 500, Node: n}})
	r.pathToChapterID["chapters/ch3.html"] = "ch3"

	target, ok := r.ResolveHref("chapters/ignored.html", "ch3.html#filepos10")
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if target.Node != nil {
		t.Errorf("expected nil node for a position before the first filepos entry, got %+v", target.Node)
	}
}
