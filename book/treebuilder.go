package book

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"go.uber.org/zap"

	"bookforge/bookerr"
	"bookforge/css"
)

// TreeBuilder parses a chapter's raw (X)HTML bytes, plus whatever
// stylesheets it references, into a normalized Tree: the on-demand IR
// construction every exporter that needs node-level style
// (KFX's Survey/Synthesis pass in particular) depends on.
//
// Grounded on the teacher's own content normalization pass, generalized
// from FB2's already-structured markup to arbitrary (X)HTML plus a CSS
// cascade: x/net/html parses leniently (chapters recovered from legacy
// MOBI/KF8 containers are not always well-formed XML), and bookforge/css
// supplies the rule set that gets matched against each element.
type TreeBuilder struct {
	parser    *css.Parser
	loadAsset AssetLoader
	log       *zap.Logger
}

// NewTreeBuilder creates a TreeBuilder. loadAsset resolves stylesheet
// hrefs discovered in a chapter's <head> to their bytes; it is typically
// Book.Asset.
func NewTreeBuilder(loadAsset AssetLoader, log *zap.Logger) *TreeBuilder {
	return &TreeBuilder{parser: css.NewParser(log), loadAsset: loadAsset, log: log}
}

// elemInfo is one ancestor frame used to match descendant selectors.
type elemInfo struct {
	tag     string
	classes []string
}

var blockTags = map[string]bool{
	"html": true, "body": true, "div": true, "section": true, "article": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"blockquote": true, "ul": true, "ol": true, "table": true, "thead": true,
	"tbody": true, "tfoot": true, "tr": true, "dl": true, "figure": true,
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "td": true, "th": true, "caption": true, "figcaption": true,
	"dt": true, "dd": true, "pre": true, "hr": true,
}

// Build parses htmlBytes (the chapter at chapterPath) into a normalized
// Tree, resolving any linked or inline stylesheets it references.
func (tb *TreeBuilder) Build(chapterPath string, htmlBytes []byte) (*Tree, error) {
	doc, err := html.Parse(bytes.NewReader(htmlBytes))
	if err != nil {
		return nil, bookerr.Wrap(bookerr.InvalidContainer, "parsing chapter "+chapterPath, err)
	}

	sheet := tb.collectStylesheet(doc, chapterPath)

	st := &buildState{sheet: sheet, pool: NewStylePool()}
	body := findNode(doc, "body")
	if body == nil {
		body = doc
	}

	root := &Node{Role: RoleRoot}
	inherited := defaultComputedStyle()
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if n := st.buildBlock(c, nil, inherited); n != nil {
			root.Children = append(root.Children, n)
		}
	}

	return &Tree{Root: root, Style: st.pool}, nil
}

func defaultComputedStyle() ComputedStyle {
	return ComputedStyle{
		FontSize:     1,
		FontSizeUnit: "em",
		FontWeight:   "normal",
		FontStyle:    "normal",
		TextAlign:    "left",
		LineHeight:   1.2,
		Opacity:      1,
		BoxSizing:    "content-box",
		Display:      "block",
	}
}

// collectStylesheet finds every <link rel="stylesheet"> and <style>
// element reachable from doc's <head>, loads/parses them, and merges
// them into one aggregate Stylesheet in document order.
func (tb *TreeBuilder) collectStylesheet(doc *html.Node, chapterPath string) *css.Stylesheet {
	agg := &css.Stylesheet{}
	head := findNode(doc, "head")
	if head == nil {
		return agg
	}
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "link":
			if !strings.Contains(strings.ToLower(attr(c, "rel")), "stylesheet") {
				continue
			}
			href := attr(c, "href")
			if href == "" || tb.loadAsset == nil {
				continue
			}
			data, err := tb.loadAsset(NormalizePath(resolveRelative(chapterPath, href)))
			if err != nil {
				if tb.log != nil {
					tb.log.Debug("unresolved chapter stylesheet", zap.String("href", href), zap.Error(err))
				}
				continue
			}
			sub := tb.parser.Parse(data, href)
			agg.Items = append(agg.Items, sub.Items...)
		case "style":
			text := textContent(c)
			if strings.TrimSpace(text) == "" {
				continue
			}
			sub := tb.parser.Parse([]byte(text), chapterPath+"#style")
			agg.Items = append(agg.Items, sub.Items...)
		}
	}
	return agg
}

// buildState carries the per-chapter stylesheet and style pool through
// the recursive descent.
type buildState struct {
	sheet *css.Stylesheet
	pool  *StylePool
}

// buildBlock converts el, a structural (block-level) element, into a
// Node. Text-bearing elements (paragraphs, headings, list items without
// nested blocks, table cells, captions, definition terms/descriptions)
// are flattened into an inline run tree via buildInline; everything else
// recurses as a container of further blocks.
func (st *buildState) buildBlock(el *html.Node, ancestors []elemInfo, inherited ComputedStyle) *Node {
	tag := el.Data
	classes := classesOf(el)
	cs := st.resolve(tag, classes, el, ancestors, inherited)
	styleID := st.pool.Intern(cs)
	frame := append(append([]elemInfo{}, ancestors...), elemInfo{tag: tag, classes: classes})

	switch tag {
	case "img":
		return &Node{Role: RoleImage, Style: styleID, Src: attr(el, "src"), Alt: attr(el, "alt"), ID: attr(el, "id")}
	case "br":
		return &Node{Role: RoleBreak, Style: styleID}
	case "hr":
		return &Node{Role: RoleRule, Style: styleID}
	case "h1", "h2", "h3", "h4", "h5", "h6":
		n := &Node{Role: RoleHeading, Level: int(tag[1] - '0'), Style: styleID, ID: attr(el, "id"), Lang: langOf(el)}
		st.fillText(n, el, frame, cs, false)
		return n
	case "p":
		n := &Node{Role: RoleParagraph, Style: styleID, ID: attr(el, "id"), Lang: langOf(el)}
		st.fillText(n, el, frame, cs, false)
		return n
	case "pre":
		n := &Node{Role: RoleCodeBlock, Style: styleID, ID: attr(el, "id")}
		st.fillText(n, el, frame, cs, true)
		return n
	case "caption":
		n := &Node{Role: RoleCaption, Style: styleID, ID: attr(el, "id")}
		st.fillText(n, el, frame, cs, false)
		return n
	case "figcaption":
		n := &Node{Role: RoleCaption, Style: styleID, ID: attr(el, "id")}
		st.fillText(n, el, frame, cs, false)
		return n
	case "dt":
		n := &Node{Role: RoleDefinitionTerm, Style: styleID, ID: attr(el, "id")}
		st.fillText(n, el, frame, cs, false)
		return n
	case "dd":
		n := &Node{Role: RoleDefinitionDescription, Style: styleID, ID: attr(el, "id")}
		st.fillText(n, el, frame, cs, false)
		return n
	case "li":
		n := &Node{Role: RoleListItem, Style: styleID, ID: attr(el, "id")}
		if containsBlockChild(el) {
			st.fillChildren(n, el, frame, cs)
		} else {
			st.fillText(n, el, frame, cs, false)
		}
		return n
	case "td", "th":
		n := &Node{
			Role:    RoleTableCell,
			Style:   styleID,
			ID:      attr(el, "id"),
			ColSpan: intAttr(el, "colspan", 1),
			RowSpan: intAttr(el, "rowspan", 1),
		}
		if tag == "th" {
			n.Level = 1
		}
		if containsBlockChild(el) {
			st.fillChildren(n, el, frame, cs)
		} else {
			st.fillText(n, el, frame, cs, false)
		}
		return n
	case "tr":
		n := &Node{Role: RoleTableRow, Style: styleID, ID: attr(el, "id")}
		st.fillChildren(n, el, frame, cs)
		return n
	case "thead", "tbody", "tfoot":
		// Transparent wrappers: fillTableChildren hoists their <tr>
		// children directly onto the table, so standalone traversal here
		// (e.g. a thead nested somewhere unexpected) just recurses.
		n := &Node{Role: RoleContainer, Style: styleID}
		st.fillChildren(n, el, frame, cs)
		return n
	case "table":
		n := &Node{Role: RoleTable, Style: styleID, ID: attr(el, "id")}
		st.fillTableChildren(n, el, frame, cs)
		return n
	case "ul", "ol":
		n := &Node{Role: RoleList, Style: styleID, ID: attr(el, "id")}
		st.fillChildren(n, el, frame, cs)
		return n
	case "dl":
		n := &Node{Role: RoleDefinitionList, Style: styleID, ID: attr(el, "id")}
		st.fillChildren(n, el, frame, cs)
		return n
	case "blockquote":
		n := &Node{Role: RoleBlockquote, Style: styleID, ID: attr(el, "id")}
		st.fillChildren(n, el, frame, cs)
		return n
	case "figure":
		n := &Node{Role: RoleFigure, Style: styleID, ID: attr(el, "id")}
		st.fillChildren(n, el, frame, cs)
		return n
	case "aside":
		kind := strings.ToLower(attr(el, "epub:type"))
		n := &Node{Role: RoleSidebar, Style: styleID, ID: attr(el, "id")}
		if strings.Contains(kind, "footnote") || strings.Contains(kind, "rearnote") || strings.Contains(kind, "endnote") {
			n.Role = RoleFootnote
		}
		st.fillChildren(n, el, frame, cs)
		return n
	case "a":
		// A block-context anchor (rare, but legal HTML5): treat like a
		// paragraph so its text/links still surface.
		n := &Node{Role: RoleParagraph, Style: styleID, ID: attr(el, "id")}
		st.fillText(n, el, frame, cs, false)
		return n
	case "head", "title", "meta", "link", "style", "script":
		return nil
	default:
		n := &Node{Role: RoleContainer, Style: styleID, ID: attr(el, "id")}
		st.fillChildren(n, el, frame, cs)
		return n
	}
}

// fillChildren recurses into el's element children as further blocks.
func (st *buildState) fillChildren(n *Node, el *html.Node, frame []elemInfo, cs ComputedStyle) {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if child := st.buildBlock(c, frame, cs); child != nil {
			n.Children = append(n.Children, child)
		}
	}
}

// fillTableChildren recurses into a <table>'s children, hoisting
// thead/tbody/tfoot's <tr> children directly onto the table.
func (st *buildState) fillTableChildren(n *Node, el *html.Node, frame []elemInfo, cs ComputedStyle) {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "thead", "tbody", "tfoot":
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				if gc.Type != html.ElementNode || gc.Data != "tr" {
					continue
				}
				if row := st.buildBlock(gc, frame, cs); row != nil {
					n.Children = append(n.Children, row)
				}
			}
		case "caption":
			if capNode := st.buildBlock(c, frame, cs); capNode != nil {
				n.Children = append(n.Children, capNode)
			}
		case "tr":
			if row := st.buildBlock(c, frame, cs); row != nil {
				n.Children = append(n.Children, row)
			}
		}
	}
}

// fillText builds n's inline content (text, links, style spans, inline
// images) and derives n.Runs from it, per the IR contract: offsets in
// Runs are character counts into the concatenation of n's RoleText
// descendants in document order.
func (st *buildState) fillText(n *Node, el *html.Node, frame []elemInfo, cs ComputedStyle, preserve bool) {
	n.Children = st.buildInline(el, frame, cs, preserve)
	_, runs := deriveRuns(n.Children)
	n.Runs = runs
}

var inlineTags = map[string]bool{
	"span": true, "b": true, "strong": true, "i": true, "em": true, "u": true,
	"small": true, "sup": true, "sub": true, "mark": true, "abbr": true,
	"q": true, "cite": true, "code": true, "kbd": true, "var": true, "samp": true,
	"s": true, "strike": true, "del": true, "ins": true, "big": true,
}

// buildInline recurses into el's children as inline content.
func (st *buildState) buildInline(el *html.Node, frame []elemInfo, inherited ComputedStyle, preserve bool) []*Node {
	var out []*Node
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text := c.Data
			if !preserve {
				text = normalizeWhitespace(text)
			}
			if text == "" {
				continue
			}
			out = append(out, &Node{Role: RoleText, Text: text})
		case html.ElementNode:
			tag := c.Data
			classes := classesOf(c)
			childFrame := append(append([]elemInfo{}, frame...), elemInfo{tag: tag, classes: classes})
			switch tag {
			case "br":
				out = append(out, &Node{Role: RoleBreak})
			case "img":
				out = append(out, &Node{Role: RoleImage, Src: attr(c, "src"), Alt: attr(c, "alt"), ID: attr(c, "id")})
			case "a":
				cs := st.resolve(tag, classes, c, frame, inherited)
				n := &Node{
					Role:  RoleLink,
					Style: st.pool.Intern(cs),
					Href:  attr(c, "href"),
					ID:    attr(c, "id"),
				}
				n.Children = st.buildInline(c, childFrame, cs, preserve || tag == "pre")
				out = append(out, n)
			default:
				cs := st.resolve(tag, classes, c, frame, inherited)
				n := &Node{
					Role:  RoleInline,
					Style: st.pool.Intern(cs),
					ID:    attr(c, "id"),
				}
				childPreserve := preserve || tag == "pre" || tag == "code"
				n.Children = st.buildInline(c, childFrame, cs, childPreserve)
				if !inlineTags[tag] && !blockTags[tag] {
					// Unknown element: keep its text, drop the wrapper
					// distinction so it doesn't masquerade as a styled span.
					n.Role = RoleInline
				}
				out = append(out, n)
			}
		}
	}
	return out
}

// deriveRuns walks children (the structural inline tree built by
// buildInline) and returns the concatenated text of its RoleText
// descendants plus the flattened style/anchor run list, recursing
// through RoleLink/RoleInline wrappers.
func deriveRuns(children []*Node) (string, []InlineRun) {
	var sb strings.Builder
	var runs []InlineRun
	for _, c := range children {
		start := sb.Len()
		switch c.Role {
		case RoleText:
			sb.WriteString(c.Text)
		case RoleBreak:
			sb.WriteString("\n")
		case RoleImage:
			// Contributes no character offset; exporters walk Children
			// directly to find inline images.
		default: // RoleLink, RoleInline
			childText, childRuns := deriveRuns(c.Children)
			sb.WriteString(childText)
			for _, r := range childRuns {
				r.Offset += start
				runs = append(runs, r)
			}
		}
		if c.Role == RoleLink || c.Role == RoleInline {
			length := sb.Len() - start
			if length > 0 || c.Role == RoleLink {
				runs = append(runs, InlineRun{Offset: start, Length: length, Style: c.Style, AnchorTarget: c.Href})
			}
		}
	}
	return sb.String(), runs
}

// resolve computes el's ComputedStyle: matched stylesheet rules cascaded
// by specificity, then the inline style="" attribute (highest
// precedence), inheriting whatever inheritable properties neither sets.
func (st *buildState) resolve(tag string, classes []string, el *html.Node, ancestors []elemInfo, inherited ComputedStyle) ComputedStyle {
	props := st.matchedProperties(tag, classes, ancestors)
	if inline := attr(el, "style"); inline != "" {
		for k, v := range parseInlineStyle(inline) {
			props[k] = v
		}
	}
	return applyProperties(props, inherited, tag)
}

func (st *buildState) matchedProperties(tag string, classes []string, ancestors []elemInfo) map[string]css.Value {
	props := make(map[string]css.Value)
	if st.sheet == nil {
		return props
	}
	type match struct {
		spec  int
		order int
		props map[string]css.Value
	}
	var matches []match
	order := 0
	for _, item := range st.sheet.Items {
		if item.Rule == nil {
			continue
		}
		order++
		spec, ok := matchSelector(item.Rule.Selector, tag, classes, ancestors)
		if !ok {
			continue
		}
		matches = append(matches, match{spec: spec, order: order, props: item.Rule.Properties})
	}
	for i := 0; i < len(matches); i++ {
		for j := i + 1; j < len(matches); j++ {
			if matches[j].spec < matches[i].spec ||
				(matches[j].spec == matches[i].spec && matches[j].order < matches[i].order) {
				matches[i], matches[j] = matches[j], matches[i]
			}
		}
	}
	for _, m := range matches {
		for k, v := range m.props {
			props[k] = v
		}
	}
	return props
}

func matchSelector(sel css.Selector, tag string, classes []string, ancestors []elemInfo) (int, bool) {
	if !matchSimple(sel, tag, classes) {
		return 0, false
	}
	spec := specOf(sel)
	if sel.Ancestor != nil {
		found := false
		for _, a := range ancestors {
			if matchSimple(*sel.Ancestor, a.tag, a.classes) {
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
		spec += 1000
	}
	return spec, true
}

func matchSimple(sel css.Selector, tag string, classes []string) bool {
	if !sel.IsSimple() {
		return false
	}
	if sel.Element != "" && !strings.EqualFold(sel.Element, tag) {
		return false
	}
	if sel.Class != "" && !hasClass(classes, sel.Class) {
		return false
	}
	return true
}

func specOf(sel css.Selector) int {
	s := 0
	if sel.Element != "" {
		s++
	}
	if sel.Class != "" {
		s += 10
	}
	return s
}

func hasClass(classes []string, want string) bool {
	for _, c := range classes {
		if c == want {
			return true
		}
	}
	return false
}

// applyProperties folds matched CSS properties onto inherited, resetting
// non-inherited properties to their initial values first.
func applyProperties(props map[string]css.Value, inherited ComputedStyle, tag string) ComputedStyle {
	cs := inherited
	cs.MarginTop, cs.MarginRight, cs.MarginBottom, cs.MarginLeft = 0, 0, 0, 0
	cs.PaddingTop, cs.PaddingRight, cs.PaddingBottom, cs.PaddingLeft = 0, 0, 0, 0
	cs.BorderWidth = 0
	cs.Indent = 0
	cs.ImageFit = ""
	cs.Opacity = 1
	cs.BoxSizing = "content-box"
	if blockTags[tag] {
		cs.Display = "block"
	} else {
		cs.Display = "inline"
	}

	if v, ok := props["display"]; ok && v.Keyword != "" {
		cs.Display = v.Keyword
	}
	if v, ok := props["font-family"]; ok {
		cs.FontFamily = splitFontFamily(v.Raw)
	}
	if v, ok := props["font-size"]; ok && v.IsNumeric() {
		cs.FontSize, cs.FontSizeUnit = v.Value, v.Unit
	}
	if v, ok := props["font-weight"]; ok {
		cs.FontWeight = keywordOrRaw(v)
	}
	if v, ok := props["font-style"]; ok {
		cs.FontStyle = keywordOrRaw(v)
	}
	if v, ok := props["font-variant"]; ok {
		cs.SmallCaps = strings.Contains(strings.ToLower(v.Raw), "small-caps")
	}
	if v, ok := props["text-align"]; ok {
		cs.TextAlign = keywordOrRaw(v)
	}
	if v, ok := props["text-indent"]; ok && v.IsNumeric() {
		cs.Indent = v.Value
	}
	if v, ok := props["line-height"]; ok && v.IsNumeric() {
		cs.LineHeight = v.Value
	}
	if v, ok := props["margin-top"]; ok && v.IsNumeric() {
		cs.MarginTop = v.Value
	}
	if v, ok := props["margin-right"]; ok && v.IsNumeric() {
		cs.MarginRight = v.Value
	}
	if v, ok := props["margin-bottom"]; ok && v.IsNumeric() {
		cs.MarginBottom = v.Value
	}
	if v, ok := props["margin-left"]; ok && v.IsNumeric() {
		cs.MarginLeft = v.Value
	}
	if v, ok := props["padding-top"]; ok && v.IsNumeric() {
		cs.PaddingTop = v.Value
	}
	if v, ok := props["padding-right"]; ok && v.IsNumeric() {
		cs.PaddingRight = v.Value
	}
	if v, ok := props["padding-bottom"]; ok && v.IsNumeric() {
		cs.PaddingBottom = v.Value
	}
	if v, ok := props["padding-left"]; ok && v.IsNumeric() {
		cs.PaddingLeft = v.Value
	}
	if v, ok := props["border-width"]; ok && v.IsNumeric() {
		cs.BorderWidth = v.Value
	}
	if v, ok := props["box-sizing"]; ok && v.Keyword != "" {
		cs.BoxSizing = v.Keyword
	}
	if v, ok := props["object-fit"]; ok && v.Keyword != "" {
		cs.ImageFit = v.Keyword
	}
	if v, ok := props["opacity"]; ok && v.IsNumeric() {
		cs.Opacity = v.Value
	}
	return cs
}

func keywordOrRaw(v css.Value) string {
	if v.Keyword != "" {
		return v.Keyword
	}
	return v.Raw
}

func splitFontFamily(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var numUnitRe = regexp.MustCompile(`^(-?[0-9]*\.?[0-9]+)([a-z%]*)$`)

func parseCSSValue(raw string) css.Value {
	v := css.Value{Raw: raw}
	if m := numUnitRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(raw))); m != nil {
		f, _ := strconv.ParseFloat(m[1], 64)
		v.Value, v.Unit = f, m[2]
	} else {
		v.Keyword = strings.TrimSpace(raw)
	}
	return v
}

func parseInlineStyle(s string) map[string]css.Value {
	out := make(map[string]css.Value)
	for _, decl := range strings.Split(s, ";") {
		name, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		out[name] = parseCSSValue(strings.TrimSpace(val))
	}
	return out
}

var wsRe = regexp.MustCompile(`[ \t\r\n\f]+`)

func normalizeWhitespace(s string) string {
	return wsRe.ReplaceAllString(s, " ")
}

func containsBlockChild(el *html.Node) bool {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && blockTags[c.Data] {
			return true
		}
	}
	return false
}

func classesOf(el *html.Node) []string {
	raw := attr(el, "class")
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}

func langOf(el *html.Node) string {
	if v := attr(el, "xml:lang"); v != "" {
		return v
	}
	return attr(el, "lang")
}

func attr(el *html.Node, name string) string {
	for _, a := range el.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func intAttr(el *html.Node, name string, def int) int {
	v := attr(el, name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func textContent(el *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(el)
	return sb.String()
}

// findNode returns the first descendant of n (depth-first, including n
// itself) with the given tag name.
func findNode(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, tag); found != nil {
			return found
		}
	}
	return nil
}
