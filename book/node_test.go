package book

import "testing"

func buildSampleTree() *Tree {
	root := &Node{
		Role: RoleRoot,
		Children: []*Node{
			{Role: RoleParagraph, ID: "p1", Children: []*Node{{Role: RoleText, Text: "hello"}}},
			{
				Role: RoleList,
				Children: []*Node{
					{Role: RoleListItem, ID: "li1"},
					{Role: RoleListItem},
				},
			},
		},
	}
	return &Tree{Root: root, Style: NewStylePool()}
}

func TestWalkVisitsEveryNode(t *testing.T) {
	tree := buildSampleTree()
	var roles []Role
	Walk(tree.Root, func(n *Node) { roles = append(roles, n.Role) })
	want := []Role{RoleRoot, RoleParagraph, RoleText, RoleList, RoleListItem, RoleListItem}
	if len(roles) != len(want) {
		t.Fatalf("visited %d nodes, want %d", len(roles), len(want))
	}
	for i, r := range want {
		if roles[i] != r {
			t.Errorf("node %d role = %v, want %v", i, roles[i], r)
		}
	}
}

func TestWalkNilIsNoop(t *testing.T) {
	called := false
	Walk(nil, func(*Node) { called = true })
	if called {
		t.Error("Walk(nil, ...) should not invoke fn")
	}
}

func TestCollectIDs(t *testing.T) {
	tree := buildSampleTree()
	ids := CollectIDs(tree)
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	if _, ok := ids["p1"]; !ok {
		t.Error("missing id p1")
	}
	if _, ok := ids["li1"]; !ok {
		t.Error("missing id li1")
	}
}

func TestCollectIDsNilTree(t *testing.T) {
	if ids := CollectIDs(nil); len(ids) != 0 {
		t.Errorf("CollectIDs(nil) = %v, want empty", ids)
	}
	if ids := CollectIDs(&Tree{}); len(ids) != 0 {
		t.Errorf("CollectIDs with nil root = %v, want empty", ids)
	}
}

func TestStylePoolInternDeduplicates(t *testing.T) {
	pool := NewStylePool()
	if pool.Len() != 1 {
		t.Fatalf("new pool length = %d, want 1 (default style)", pool.Len())
	}
	s := ComputedStyle{FontSize: 2, FontSizeUnit: "em"}
	id1 := pool.Intern(s)
	id2 := pool.Intern(s)
	if id1 != id2 {
		t.Errorf("Intern of identical styles returned different ids: %d vs %d", id1, id2)
	}
	if pool.Len() != 2 {
		t.Errorf("pool length = %d, want 2", pool.Len())
	}

	other := ComputedStyle{FontSize: 3, FontSizeUnit: "em"}
	id3 := pool.Intern(other)
	if id3 == id1 {
		t.Error("distinct styles should get distinct ids")
	}
}

func TestStylePoolGetOutOfRange(t *testing.T) {
	pool := NewStylePool()
	if got := pool.Get(StyleID(99)); got != (ComputedStyle{}) {
		t.Errorf("Get(out of range) = %+v, want zero value", got)
	}
}
