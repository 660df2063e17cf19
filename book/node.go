package book

// Role is the flat tagged variant every normalized-tree node carries,
///§9 ("the IR's Role is a single flat tagged variant, not a
// class hierarchy... polymorphic operations are expressed as match over
// Role").
type Role int

const (
	RoleRoot Role = iota
	RoleContainer
	RoleParagraph
	RoleHeading // Level distinguishes h1..h6
	RoleList
	RoleListItem
	RoleBlockquote
	RoleInline
	RoleText
	RoleLink
	RoleImage
	RoleBreak
	RoleRule
	RoleCodeBlock
	RoleTable
	RoleTableRow
	RoleTableCell
	RoleFigure
	RoleCaption
	RoleFootnote
	RoleSidebar
	RoleDefinitionList
	RoleDefinitionTerm
	RoleDefinitionDescription
)

// StyleID indexes into a chapter's style pool. StyleIDDefault
// is the well-known id guaranteed to exist in every pool.
type StyleID int

const StyleIDDefault StyleID = 0

// ComputedStyle carries the properties KFX's style model needs.
type ComputedStyle struct {
	Display       string
	FontFamily    []string
	FontSize      float64
	FontSizeUnit  string
	FontWeight    string
	FontStyle     string
	SmallCaps     bool
	TextAlign     string
	Indent        float64
	MarginTop     float64
	MarginRight   float64
	MarginBottom  float64
	MarginLeft    float64
	PaddingTop    float64
	PaddingRight  float64
	PaddingBottom float64
	PaddingLeft   float64
	BorderWidth   float64
	BoxSizing     string
	LineHeight    float64
	ImageFit      string
	Opacity       float64
}

// StylePool holds one chapter's interned styles, indexed by StyleID.
type StylePool struct {
	styles []ComputedStyle
}

// NewStylePool creates a pool pre-seeded with the default style at
// StyleIDDefault.
func NewStylePool() *StylePool {
	return &StylePool{styles: []ComputedStyle{{}}}
}

// Intern returns the StyleID for s, reusing an identical prior entry.
func (p *StylePool) Intern(s ComputedStyle) StyleID {
	for i, existing := range p.styles {
		if existing == s {
			return StyleID(i)
		}
	}
	p.styles = append(p.styles, s)
	return StyleID(len(p.styles) - 1)
}

// Get returns the ComputedStyle for id.
func (p *StylePool) Get(id StyleID) ComputedStyle {
	if int(id) < 0 || int(id) >= len(p.styles) {
		return ComputedStyle{}
	}
	return p.styles[id]
}

// Len returns the number of interned styles.
func (p *StylePool) Len() int { return len(p.styles) }

// InlineRun is a (offset, length, style, optional anchor) span within a
// paragraph's normalized text.
type InlineRun struct {
	Offset       int
	Length       int
	Style        StyleID
	AnchorTarget string // href, empty if not a link span
}

// Node is one element of a chapter's normalized tree.
type Node struct {
	Role     Role
	Style    StyleID
	Text     string // non-empty iff Role == RoleText
	Level    int    // heading level 1..6 when Role == RoleHeading
	Href     string // RoleLink, RoleImage (src), RoleFootnote (target)
	Src      string // RoleImage asset path
	Alt      string
	ID       string // anchor id, if this node is a link/TOC target
	Lang     string
	Runs     []InlineRun // inline style runs, set on RoleParagraph nodes
	ColSpan  int         // RoleTableCell
	RowSpan  int         // RoleTableCell
	Children []*Node
}

// Tree is one chapter's normalized node tree plus its style pool.
type Tree struct {
	Root  *Node
	Style *StylePool
}

// Walk visits every node in the tree in document order, depth-first,
// calling fn(node). This is the shared traversal every KFX/EPUB
// generator and the anchor resolver builds on.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// CollectIDs walks t and returns every node id present, for the anchor
// resolver's per-chapter id index.
func CollectIDs(t *Tree) map[string]*Node {
	out := make(map[string]*Node)
	if t == nil || t.Root == nil {
		return out
	}
	Walk(t.Root, func(n *Node) {
		if n.ID != "" {
			out[n.ID] = n
		}
	})
	return out
}
