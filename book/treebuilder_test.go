package book

import "testing"

func TestTreeBuilderBasicStructure(t *testing.T) {
	tb := NewTreeBuilder(nil, nil)
	html := []byte(`<html><body>` +
		`<h1 id="t">Title</h1>` +
		`<p>Hello <a href="ch2.html">link</a> world</p>` +
		`<img src="img1.png" alt="pic"/>` +
		`</body></html>`)

	tree, err := tb.Build("ch1.html", html)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tree.Root.Children) != 3 {
		t.Fatalf("got %d top-level nodes, want 3", len(tree.Root.Children))
	}

	heading := tree.Root.Children[0]
	if heading.Role != RoleHeading || heading.Level != 1 || heading.ID != "t" {
		t.Errorf("heading = %+v", heading)
	}
	if len(heading.Children) != 1 || heading.Children[0].Text != "Title" {
		t.Errorf("heading children = %+v", heading.Children)
	}

	para := tree.Root.Children[1]
	if para.Role != RoleParagraph {
		t.Fatalf("expected paragraph, got %v", para.Role)
	}
	if len(para.Runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(para.Runs))
	}
	run := para.Runs[0]
	if run.AnchorTarget != "ch2.html" || run.Offset != 6 || run.Length != 4 {
		t.Errorf("run = %+v, want Offset=6 Length=4 AnchorTarget=ch2.html", run)
	}

	img := tree.Root.Children[2]
	if img.Role != RoleImage || img.Src != "img1.png" || img.Alt != "pic" {
		t.Errorf("img = %+v", img)
	}
}

func TestTreeBuilderList(t *testing.T) {
	tb := NewTreeBuilder(nil, nil)
	html := []byte(`<html><body><ul><li>one</li><li>two</li></ul></body></html>`)
	tree, err := tb.Build("ch1.html", html)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tree.Root.Children) != 1 {
		t.Fatalf("got %d top-level nodes, want 1", len(tree.Root.Children))
	}
	list := tree.Root.Children[0]
	if list.Role != RoleList || len(list.Children) != 2 {
		t.Fatalf("list = %+v", list)
	}
	for i, want := range []string{"one", "two"} {
		item := list.Children[i]
		if item.Role != RoleListItem || len(item.Children) != 1 || item.Children[0].Text != want {
			t.Errorf("item %d = %+v, want text %q", i, item, want)
		}
	}
}

func TestTreeBuilderTableHoistsRows(t *testing.T) {
	tb := NewTreeBuilder(nil, nil)
	html := []byte(`<html><body><table><tbody><tr><td>a</td></tr></tbody></table></body></html>`)
	tree, err := tb.Build("ch1.html", html)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	table := tree.Root.Children[0]
	if table.Role != RoleTable || len(table.Children) != 1 {
		t.Fatalf("table = %+v", table)
	}
	row := table.Children[0]
	if row.Role != RoleTableRow || len(row.Children) != 1 {
		t.Fatalf("row = %+v", row)
	}
	cell := row.Children[0]
	if cell.Role != RoleTableCell || cell.ColSpan != 1 || cell.RowSpan != 1 {
		t.Errorf("cell = %+v", cell)
	}
}

func TestTreeBuilderInvalidHTMLStillParses(t *testing.T) {
	tb := NewTreeBuilder(nil, nil)
	// x/net/html recovers from unclosed tags rather than erroring.
	html := []byte(`<html><body><p>unclosed`)
	if _, err := tb.Build("ch1.html", html); err != nil {
		t.Fatalf("Build: %v", err)
	}
}
