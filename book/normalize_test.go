package book

import "testing"

func TestNormalizerDedupesIdenticalStylesAcrossChapters(t *testing.T) {
	n := NewNormalizer()

	local1 := NewStylePool()
	boldID := local1.Intern(ComputedStyle{FontWeight: "bold"})
	n.AddChapter("ch1", local1)

	local2 := NewStylePool()
	boldID2 := local2.Intern(ComputedStyle{FontWeight: "bold"})
	n.AddChapter("ch2", local2)

	root1 := &Node{Role: RoleParagraph, Style: boldID}
	root2 := &Node{Role: RoleParagraph, Style: boldID2}

	remapped1 := n.RemapNode("ch1", root1)
	remapped2 := n.RemapNode("ch2", root2)

	if remapped1.Style != remapped2.Style {
		t.Errorf("identical styles from different chapters got different global ids: %d vs %d", remapped1.Style, remapped2.Style)
	}
	// Default + one distinct interned style.
	if n.GlobalPool().Len() != 2 {
		t.Errorf("global pool length = %d, want 2", n.GlobalPool().Len())
	}
}

func TestNormalizerRemapsChildrenAndRuns(t *testing.T) {
	n := NewNormalizer()
	local := NewStylePool()
	italicID := local.Intern(ComputedStyle{FontStyle: "italic"})
	n.AddChapter("ch1", local)

	root := &Node{
		Role: RoleParagraph,
		Runs: []InlineRun{{Offset: 0, Length: 3, Style: italicID}},
		Children: []*Node{
			{Role: RoleText, Text: "abc", Style: italicID},
		},
	}
	remapped := n.RemapNode("ch1", root)

	globalID := n.GlobalPool().Intern(ComputedStyle{FontStyle: "italic"})
	if remapped.Runs[0].Style != globalID {
		t.Errorf("run style = %d, want %d", remapped.Runs[0].Style, globalID)
	}
	if remapped.Children[0].Style != globalID {
		t.Errorf("child style = %d, want %d", remapped.Children[0].Style, globalID)
	}
	// The original tree must be untouched.
	if root.Children[0].Style != italicID {
		t.Errorf("RemapNode mutated the source tree")
	}
}

func TestNormalizerRemapNilNode(t *testing.T) {
	n := NewNormalizer()
	n.AddChapter("ch1", NewStylePool())
	if got := n.RemapNode("ch1", nil); got != nil {
		t.Errorf("RemapNode(nil) = %v, want nil", got)
	}
}
