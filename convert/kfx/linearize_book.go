package kfx

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"bookforge/book"
)

// linearizer walks a book.Book's chapters, already normalized into
// book.Tree form, directly into StorylineBuilder content entries. Unlike
// the CSS/StartBlock-EndBlock path (frag_block_builder.go), which defers
// style resolution until a wrapper's full child count is known, every
// node here already carries its own concrete book.ComputedStyle - there
// is no position-aware re-resolution to defer, so styles are registered
// immediately via bookStyleProps.
//
// Anchors are resolved in a single pass: StyleEventRef.LinkTo is a symbol
// name, not a numeric EID (frag_content_entry.go), so a link to a node
// that hasn't been emitted yet (an endnote chapter that follows the
// chapter referencing it, for instance) still resolves correctly once
// buildAnchorFragments runs after every chapter has been linearized.
type linearizer struct {
	resolver   *book.Resolver
	styles     *StyleRegistry
	ca         *ContentAccumulator
	imageInfo  imageResourceInfoByID
	idToEID    eidByNodeID
	referenced map[string]bool
	log        *zap.Logger
}

// linearizedChapter is one spine item's generated storyline/section pair.
type linearizedChapter struct {
	spineID         string
	sectionName     string
	storyName       string
	storylineFrag   *Fragment
	sectionFrag     *Fragment
	firstEID        int
	pageTemplateEID int
	allEIDs         []int
}

// linearizeBook builds a normalized book.Tree for every spine chapter,
// registers them with a shared resolver, then walks each chapter's direct
// children into one StorylineBuilder apiece. EIDs run globally across
// chapters: each chapter's builder picks up where the previous one's
// NextEID left off.
func linearizeBook(ctx context.Context, b *book.Book, styles *StyleRegistry, imageInfo imageResourceInfoByID, log *zap.Logger) ([]*linearizedChapter, eidByNodeID, []*Fragment, []*Fragment, *book.Resolver, error) {
	resolver := book.NewResolver()
	tb := book.NewTreeBuilder(b.Asset, log)
	trees := make(map[string]*book.Tree, len(b.Spine))

	for _, item := range b.Spine {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, nil, nil, err
		}
		if tree, ok := b.CachedTree(item.ID); ok {
			trees[item.ID] = tree
			resolver.RegisterChapter(item.ID, item.ID, tree)
			continue
		}
		raw, err := b.Chapter(item.ID)
		if err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("loading chapter %s: %w", item.ID, err)
		}
		tree, err := tb.Build(item.ID, raw)
		if err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("normalizing chapter %s: %w", item.ID, err)
		}
		trees[item.ID] = tree
		b.StoreTree(item.ID, tree)
		resolver.RegisterChapter(item.ID, item.ID, tree)
	}

	lz := &linearizer{
		resolver:   resolver,
		styles:     styles,
		ca:         NewContentAccumulator(1),
		imageInfo:  imageInfo,
		idToEID:    make(eidByNodeID),
		referenced: make(map[string]bool),
		log:        log,
	}

	var chapters []*linearizedChapter
	nextEID := 0
	for i, item := range b.Spine {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, nil, nil, err
		}
		tree := trees[item.ID]
		sectionName := fmt.Sprintf("c%d", i)
		storyName := fmt.Sprintf("l%d", i)
		sb := NewStorylineBuilder(storyName, sectionName, nextEID, styles)

		// Record the chapter's whole-file anchor target before any
		// content is added: FirstEID() falls back to eidCounter (the
		// EID the first entry will receive) when contentEntries is
		// still empty, so this is exactly the value FirstEID() would
		// report once the chapter is fully built.
		lz.idToEID["chapter:"+item.ID] = sb.FirstEID()

		if tree.Root != nil {
			for _, child := range tree.Root.Children {
				if err := ctx.Err(); err != nil {
					return nil, nil, nil, nil, nil, err
				}
				if child.Role == book.RoleTable {
					sb.AddTable(child, styles, lz.ca)
					continue
				}
				ref, ok := lz.buildContentRef(sb, tree, item.ID, child, nil)
				if !ok {
					continue
				}
				sb.addEntry(ref)
			}
		}

		allEIDs := sb.AllEIDs()
		storylineFrag, sectionFrag := sb.Build()
		nextEID = sb.NextEID()

		chapters = append(chapters, &linearizedChapter{
			spineID:         item.ID,
			sectionName:     sectionName,
			storyName:       storyName,
			storylineFrag:   storylineFrag,
			sectionFrag:     sectionFrag,
			firstEID:        sb.FirstEID(),
			pageTemplateEID: sb.PageTemplateEID(),
			allEIDs:         allEIDs,
		})
	}

	anchorFrags := buildAnchorFragments(lz.idToEID, lz.referenced)

	contentChunks := lz.ca.Finish()
	contentFrags := make([]*Fragment, 0, len(contentChunks))
	for name, chunk := range contentChunks {
		contentFrags = append(contentFrags, buildContentFragmentByName(name, chunk))
	}

	return chapters, lz.idToEID, anchorFrags, contentFrags, resolver, nil
}

// styleFor converts cs directly to KFX style properties and registers it,
// bypassing the CSS-tag resolution path entirely (there is no tag here -
// every node already carries its own resolved ComputedStyle).
func (lz *linearizer) styleFor(cs book.ComputedStyle, usage styleUsage) string {
	return lz.styles.RegisterResolved(bookStyleProps(cs), usage, true)
}

// isInlineRole reports whether r is one of the flattened inline roles
// buildInline produces (book/treebuilder.go), as opposed to a block role.
func isInlineRole(r book.Role) bool {
	switch r {
	case book.RoleText, book.RoleBreak, book.RoleImage, book.RoleLink, book.RoleInline:
		return true
	default:
		return false
	}
}

// isLeafTextNode reports whether n's children are pure inline content (the
// fillText path), as opposed to nested block children (the fillChildren
// path). Both can appear under RoleListItem/RoleTableCell, so the
// distinction has to be made structurally rather than from n.Role alone.
func isLeafTextNode(n *book.Node) bool {
	if len(n.Children) == 0 {
		return true
	}
	for _, c := range n.Children {
		if !isInlineRole(c.Role) {
			return false
		}
	}
	return true
}

// inlineImage is one RoleImage descendant found while flattening a leaf
// node's inline children, at the character offset it occurs in the
// flattened text.
type inlineImage struct {
	offset int
	node   *book.Node
}

// flattenInline mirrors book/treebuilder.go's unexported deriveRuns: it
// concatenates RoleText descendants (and a newline per RoleBreak) into a
// single string, recursing through RoleLink/RoleInline wrappers, and
// records every RoleImage encountered along the way at its text offset.
// n.Runs (already computed by the tree builder) supplies the style/anchor
// spans over the resulting string; this function only needs to reproduce
// the same concatenation so those offsets stay valid.
func flattenInline(children []*book.Node) (string, []inlineImage) {
	var sb strings.Builder
	var images []inlineImage
	for _, c := range children {
		switch c.Role {
		case book.RoleText:
			sb.WriteString(c.Text)
		case book.RoleBreak:
			sb.WriteString("\n")
		case book.RoleImage:
			images = append(images, inlineImage{offset: sb.Len(), node: c})
		default: // RoleLink, RoleInline
			base := sb.Len()
			childText, childImages := flattenInline(c.Children)
			sb.WriteString(childText)
			for _, im := range childImages {
				images = append(images, inlineImage{offset: base + im.offset, node: im.node})
			}
		}
	}
	return sb.String(), images
}

// resolveAssetPath resolves an <img src> href against the chapter it was
// found in, the same way book.Resolver.resolveRelative resolves chapter
// hrefs, then normalizes it to match the keys BuildImageResourceFragments
// populates imageInfo with (the exact strings in b.AssetPaths).
func resolveAssetPath(chapterID, href string) string {
	if href == "" {
		return ""
	}
	p := href
	if idx := strings.IndexByte(p, '#'); idx >= 0 {
		p = p[:idx]
	}
	if !strings.HasPrefix(p, "/") {
		dir := ""
		if idx := strings.LastIndexByte(chapterID, '/'); idx >= 0 {
			dir = chapterID[:idx+1]
		}
		p = dir + p
	}
	return book.NormalizePath(p)
}

// resolveAnchor resolves href (found on a RoleLink run anchored in
// chapterID) to the key buildAnchorFragments/StyleEventRef.LinkTo agree
// on: "chapterID#nodeID" for a specific target node, or "chapter:id" for
// a whole-chapter target.
func (lz *linearizer) resolveAnchor(chapterID, href string) (key string, isFootnote bool, ok bool) {
	target, found := lz.resolver.ResolveHref(chapterID, href)
	if !found {
		return "", false, false
	}
	if target.Node != nil {
		if target.Node.ID == "" {
			return "", false, false
		}
		return target.ChapterID + "#" + target.Node.ID, target.Node.Role == book.RoleFootnote, true
	}
	if target.ChapterID == "" {
		return "", false, false
	}
	return "chapter:" + target.ChapterID, false, true
}

// buildContentRef converts one book.Node into a ContentRef, allocating its
// own EID(s) directly off sb's counter. It never calls sb.addEntry itself:
// the caller decides whether the result becomes a top-level content entry
// or gets nested into a parent's Children via NewContentEntry. inFootnote,
// when non-nil, marks the first text leaf emitted under it as footnote
// body content (position: footer, yj.classification: footnote); it is
// replaced with a fresh flag whenever a RoleFootnote subtree is entered,
// since footnotes don't nest.
func (lz *linearizer) buildContentRef(sb *StorylineBuilder, tree *book.Tree, chapterID string, n *book.Node, inFootnote *bool) (ContentRef, bool) {
	if n == nil {
		return ContentRef{}, false
	}

	switch n.Role {
	case book.RoleBreak:
		return ContentRef{}, false
	case book.RoleTable:
		// Tables are only supported as direct chapter-level children
		// (AddTable pushes straight to the storyline); a table nested
		// inside a blockquote/list/figure is dropped rather than
		// flattened to the wrong level.
		lz.log.Warn("dropping table nested inside another container, not supported", zap.String("chapter", chapterID))
		return ContentRef{}, false
	case book.RoleImage:
		return lz.buildImage(sb, tree, chapterID, n, false)
	case book.RoleRule:
		return lz.buildRule(sb, tree, n)
	}

	if isLeafTextNode(n) {
		return lz.buildLeaf(sb, tree, chapterID, n, n.Role == book.RoleListItem, inFootnote)
	}
	return lz.buildContainer(sb, tree, chapterID, n, inFootnote)
}

func (lz *linearizer) buildImage(sb *StorylineBuilder, tree *book.Tree, chapterID string, n *book.Node, inline bool) (ContentRef, bool) {
	assetPath := resolveAssetPath(chapterID, n.Src)
	info, ok := lz.imageInfo[assetPath]
	if !ok {
		return ContentRef{}, false
	}
	styleName := lz.styleFor(tree.Style.Get(n.Style), styleUsageImage)
	eid := sb.eidCounter
	sb.eidCounter++
	if n.ID != "" {
		lz.idToEID[chapterID+"#"+n.ID] = eid
	}
	return ContentRef{
		EID:          eid,
		Type:         SymImage,
		ResourceName: info.ResourceName,
		Style:        styleName,
		AltText:      n.Alt,
		RenderInline: inline,
	}, true
}

func (lz *linearizer) buildRule(sb *StorylineBuilder, tree *book.Tree, n *book.Node) (ContentRef, bool) {
	styleName := lz.styleFor(tree.Style.Get(n.Style), styleUsageWrapper)
	eid := sb.eidCounter
	sb.eidCounter++
	return ContentRef{EID: eid, Type: SymContainer, Style: styleName}, true
}

// buildLeaf converts a text-bearing node (paragraph, heading, list item
// without block children, table caption, ...) into a content entry,
// including the mixed text/inline-image case.
func (lz *linearizer) buildLeaf(sb *StorylineBuilder, tree *book.Tree, chapterID string, n *book.Node, listItem bool, inFootnote *bool) (ContentRef, bool) {
	text, images := flattenInline(n.Children)
	if text == "" && len(images) == 0 {
		return ContentRef{}, false
	}

	styleName := lz.styleFor(tree.Style.Get(n.Style), styleUsageText)
	headingLevel := 0
	if n.Role == book.RoleHeading {
		headingLevel = n.Level
	}

	var raw []StyleEventRef
	for _, run := range n.Runs {
		runStyle := lz.styleFor(tree.Style.Get(run.Style), styleUsageInline)
		ev := StyleEventRef{Offset: run.Offset, Length: run.Length, Style: runStyle}
		if run.AnchorTarget != "" {
			if key, isFootnote, ok := lz.resolveAnchor(chapterID, run.AnchorTarget); ok {
				ev.LinkTo = key
				ev.IsFootnoteLink = isFootnote
				lz.referenced[key] = true
			}
		}
		raw = append(raw, ev)
	}
	var events []StyleEventRef
	if len(raw) > 0 {
		events = SegmentStyleEvents(raw, styleName, len(text))
	}

	entryType := SymText
	if listItem {
		entryType = SymListItem
	}

	footnoteContent := inFootnote != nil && *inFootnote

	eid := sb.eidCounter
	sb.eidCounter++

	var ref ContentRef
	if len(images) == 0 {
		contentName, offset := lz.ca.Add(text)
		ref = ContentRef{
			EID:             eid,
			Type:            entryType,
			ContentName:     contentName,
			ContentOffset:   offset,
			Style:           styleName,
			HeadingLevel:    headingLevel,
			StyleEvents:     events,
			FootnoteContent: footnoteContent,
		}
	} else {
		entry := lz.buildMixedEntry(sb, tree, chapterID, eid, entryType, styleName, text, images, events, headingLevel)
		if footnoteContent {
			entry.SetSymbol(SymPosition, SymFooter)
			entry.SetSymbol(SymYjClassification, SymFootnote)
		}
		ref = ContentRef{EID: eid, Type: entryType, Style: styleName, HeadingLevel: headingLevel, RawEntry: entry}
	}

	if footnoteContent {
		*inFootnote = false
	}
	if n.ID != "" {
		lz.idToEID[chapterID+"#"+n.ID] = eid
	}
	return ref, true
}

// buildMixedEntry builds a $146 content_list interleaving raw text strings
// with inline image sub-entries, the nested-safe equivalent of
// StorylineBuilder.AddMixedContent (which always pushes straight to the
// storyline, so it can't be used for content destined to be nested inside
// a parent's Children).
func (lz *linearizer) buildMixedEntry(sb *StorylineBuilder, tree *book.Tree, chapterID string, eid int, entryType KFXSymbol, style, text string, images []inlineImage, events []StyleEventRef, headingLevel int) StructValue {
	sort.SliceStable(images, func(i, j int) bool { return images[i].offset < images[j].offset })

	contentList := make([]any, 0, len(images)*2+1)
	cursor := 0
	for _, im := range images {
		if im.offset > cursor {
			contentList = append(contentList, text[cursor:im.offset])
		}
		cursor = im.offset

		assetPath := resolveAssetPath(chapterID, im.node.Src)
		info, ok := lz.imageInfo[assetPath]
		if !ok {
			continue
		}
		imgEID := sb.eidCounter
		sb.eidCounter++
		imgStyle := lz.styleFor(tree.Style.Get(im.node.Style), styleUsageImage)

		imgEntry := NewStruct().
			SetInt(SymUniqueID, int64(imgEID)).
			SetSymbol(SymType, SymImage).
			Set(SymResourceName, SymbolByName(info.ResourceName)).
			SetSymbol(SymRender, SymInline)
		if imgStyle != "" {
			imgEntry.Set(SymStyle, SymbolByName(imgStyle))
		}
		imgEntry.SetString(SymAltText, im.node.Alt)
		contentList = append(contentList, imgEntry)

		if im.node.ID != "" {
			lz.idToEID[chapterID+"#"+im.node.ID] = imgEID
		}
	}
	if cursor < len(text) {
		contentList = append(contentList, text[cursor:])
	}

	entry := NewStruct().
		SetInt(SymUniqueID, int64(eid)).
		SetSymbol(SymType, entryType).
		SetList(SymContentList, contentList)
	if style != "" {
		entry.Set(SymStyle, SymbolByName(style))
	}
	if len(events) > 0 {
		evList := make([]any, 0, len(events))
		for _, se := range events {
			ev := NewStruct().
				SetInt(SymOffset, int64(se.Offset)).
				SetInt(SymLength, int64(se.Length))
			if se.Style != "" {
				ev.Set(SymStyle, SymbolByName(se.Style))
			}
			if se.LinkTo != "" {
				ev.Set(SymLinkTo, SymbolByName(se.LinkTo))
			}
			if se.IsFootnoteLink {
				ev.SetSymbol(SymYjDisplay, SymYjNote)
			}
			evList = append(evList, ev)
		}
		entry.SetList(SymStyleEvents, evList)
	}
	if headingLevel > 0 {
		entry.SetInt(SymYjHeadingLevel, int64(headingLevel))
	}
	return entry
}

// buildContainer converts a node with block children (list, blockquote,
// sidebar, figure, definition list, footnote, generic container) into a
// wrapper ContentRef whose Children are the already-converted child
// entries. Empty wrappers are dropped, matching EndBlock's behavior (a
// wrapper with no content triggers position_map validation errors).
func (lz *linearizer) buildContainer(sb *StorylineBuilder, tree *book.Tree, chapterID string, n *book.Node, inFootnote *bool) (ContentRef, bool) {
	childFootnote := inFootnote
	if n.Role == book.RoleFootnote {
		first := true
		childFootnote = &first
	}

	var children []any
	for _, c := range n.Children {
		ref, ok := lz.buildContentRef(sb, tree, chapterID, c, childFootnote)
		if !ok {
			continue
		}
		children = append(children, NewContentEntry(ref))
	}
	if len(children) == 0 {
		return ContentRef{}, false
	}

	entryType := SymText // container wrappers use $269 (text), per EndBlock's convention
	usage := styleUsageWrapper
	switch n.Role {
	case book.RoleList:
		entryType = SymList
	case book.RoleListItem:
		entryType = SymListItem
	}

	styleName := lz.styleFor(tree.Style.Get(n.Style), usage)
	eid := sb.eidCounter
	sb.eidCounter++
	if n.ID != "" {
		lz.idToEID[chapterID+"#"+n.ID] = eid
	}
	return ContentRef{EID: eid, Type: entryType, Style: styleName, Children: children}, true
}

// buildTOCEntries converts the book's hierarchical TOC into TOCEntry nodes
// targeting the EIDs recorded in idToEID during linearization, resolving
// each TOCNode.Href from the book root (TOC hrefs are already root-
// relative paths, like spine ids).
func buildTOCEntries(nodes []*book.TOCNode, resolver *book.Resolver, chapters map[string]*linearizedChapter, idToEID eidByNodeID) []*TOCEntry {
	out := make([]*TOCEntry, 0, len(nodes))
	for i, tn := range nodes {
		entry := &TOCEntry{
			ID:           fmt.Sprintf("toc-%d", i),
			Title:        tn.Title,
			IncludeInTOC: true,
		}
		if target, ok := resolver.ResolveHref("", tn.Href); ok {
			var key string
			if target.Node != nil && target.Node.ID != "" {
				key = target.ChapterID + "#" + target.Node.ID
			} else {
				key = "chapter:" + target.ChapterID
			}
			if eid, ok := idToEID[key]; ok {
				entry.FirstEID = eid
			}
			if ch, ok := chapters[target.ChapterID]; ok {
				entry.SectionName = ch.sectionName
				entry.StoryName = ch.storyName
			}
		}
		if len(tn.Children) > 0 {
			entry.Children = buildTOCEntries(tn.Children, resolver, chapters, idToEID)
		}
		out = append(out, entry)
	}
	return out
}
