package kfx

import (
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"bookforge/book"
	"bookforge/bookerr"
)

// Import parses a KFX container's bytes into a book.Book. One spine chapter
// is produced per KFX section; a section's storyline content_list is
// flattened into minimal paragraph/heading/image XHTML, since KFX carries
// presentation as resolved style fragments rather than the markup tree EPUB
// and MOBI import from. TOC and landmark targets resolve to the owning
// section, not a precise in-chapter anchor: KFX addresses navigation
// targets by element id, and recovering which id falls at which offset
// inside a chapter's rendered markup is not attempted here.
func Import(data []byte, log *zap.Logger) (*book.Book, error) {
	c, err := ReadContainer(data)
	if err != nil {
		return nil, bookerr.Wrap(bookerr.InvalidContainer, "reading KFX container", err)
	}
	if c.DRMScheme != 0 {
		return nil, bookerr.New(bookerr.UnsupportedFeature, "DRM-protected KFX books are not supported")
	}
	if c.CompressionType != 0 {
		return nil, bookerr.New(bookerr.UnsupportedFeature, "compressed KFX entities are not supported")
	}

	names := newNameResolver(c)

	meta, coverResourceName := importMetadata(c)

	sectionNames, err := importReadingOrder(c)
	if err != nil {
		return nil, err
	}

	assetPaths, assetData, hrefByResourceName := importResources(c, names, log)
	if coverResourceName != "" {
		if href, ok := hrefByResourceName[coverResourceName]; ok {
			meta.CoverHref = href
		}
	}

	imp := &importer{
		container:          c,
		names:              names,
		hrefByResourceName: hrefByResourceName,
		eidToSection:       make(map[int64]string),
	}

	chapters := make(map[string][]byte, len(sectionNames))
	var spine []book.SpineItem
	for _, sectionName := range sectionNames {
		body, err := imp.renderSection(sectionName)
		if err != nil {
			return nil, err
		}
		chapters[sectionName] = body
		spine = append(spine, book.SpineItem{ID: sectionName, SizeEstimate: len(body)})
	}

	toc, landmarks := imp.importNavigation()

	loadChapter := func(id string) ([]byte, error) {
		body, ok := chapters[id]
		if !ok {
			return nil, bookerr.New(bookerr.MissingReference, "unknown KFX section "+id)
		}
		return body, nil
	}
	loadAsset := func(p string) ([]byte, error) {
		data, ok := assetData[p]
		if !ok {
			return nil, bookerr.New(bookerr.MissingReference, "unknown KFX resource "+p)
		}
		return data, nil
	}

	return book.New(meta, spine, toc, landmarks, assetPaths, loadChapter, loadAsset), nil
}

// symKey returns the field-name text a KFXSymbol decodes to inside a
// freshly-parsed fragment: the YJ_symbols shared table assigns literal
// "$N" text to every well-known symbol, so struct fields and symbol values
// for well-known ids come back as that string rather than a mnemonic name.
func symKey(sym KFXSymbol) string {
	return fmt.Sprintf("$%d", int(sym))
}

// nameResolver maps a document-local name (a section, storyline, resource
// or content fragment name, carried as real text in the document symbol
// table) back to the local symbol id used as that fragment's FID in the
// entity directory.
type nameResolver struct {
	idByName map[string]KFXSymbol
}

func newNameResolver(c *Container) *nameResolver {
	r := &nameResolver{idByName: make(map[string]KFXSymbol)}
	if c.DocSymbolTable == nil {
		return r
	}
	maxID := uint64(c.DocSymbolTable.MaxID())
	for id := uint64(1); id <= maxID; id++ {
		name, ok := c.DocSymbolTable.FindByID(id)
		if !ok || name == "" || strings.HasPrefix(name, "$") {
			continue
		}
		r.idByName[name] = KFXSymbol(id)
	}
	return r
}

func (r *nameResolver) id(name string) (KFXSymbol, bool) {
	id, ok := r.idByName[name]
	return id, ok
}

// importMetadata reads the $490 book_metadata singleton's categorised
// key/value entries into a book.Metadata, grounded on the field layout
// BuildBookMetadata writes. Returns the cover image's resource name, if
// any, for the caller to resolve against the imported resources.
func importMetadata(c *Container) (book.Metadata, string) {
	var meta book.Metadata
	coverResourceName := ""

	frag := c.Fragments.GetRoot(SymBookMetadata)
	if frag == nil {
		return meta, ""
	}
	root, ok := frag.Value.(map[string]any)
	if !ok {
		return meta, ""
	}
	categories, _ := root[symKey(SymCatMetadata)].([]any)
	for _, cat := range categories {
		catMap, ok := cat.(map[string]any)
		if !ok {
			continue
		}
		entries, _ := catMap[symKey(SymMetadata)].([]any)
		for _, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			key, _ := entry[symKey(SymKey)].(string)
			val := entry[symKey(SymValue)]
			applyMetadataEntry(&meta, &coverResourceName, key, val)
		}
	}
	return meta, coverResourceName
}

func applyMetadataEntry(meta *book.Metadata, coverResourceName *string, key string, val any) {
	s, isString := val.(string)
	switch key {
	case "title":
		if isString {
			meta.Title = s
		}
	case "author":
		if isString {
			meta.Authors = append(meta.Authors, s)
		}
	case "language":
		if isString {
			meta.Language = s
		}
	case "publisher":
		if isString {
			meta.Publisher = s
		}
	case "description":
		if isString {
			meta.Description = s
		}
	case "content_id":
		if isString && meta.Identifier == "" {
			meta.Identifier = s
		}
	case "ASIN":
		if isString && meta.Identifier == "" {
			meta.Identifier = s
		}
	case "cover_image":
		if isString {
			*coverResourceName = s
		}
	}
}

// importReadingOrder reads the section ordering off the $538 document_data
// singleton (falling back to the $258 metadata singleton some generators
// use instead), grounded on BuildDocumentData/BuildReadingOrderMetadata.
func importReadingOrder(c *Container) ([]string, error) {
	frag := c.Fragments.GetRoot(SymDocumentData)
	if frag == nil {
		frag = c.Fragments.GetRoot(SymMetadata)
	}
	if frag == nil {
		return nil, bookerr.New(bookerr.InvalidContainer, "KFX container has no document_data or metadata reading order")
	}
	root, ok := frag.Value.(map[string]any)
	if !ok {
		return nil, bookerr.New(bookerr.InvalidContainer, "document_data fragment has unexpected shape")
	}
	orders, _ := root[symKey(SymReadingOrders)].([]any)

	var sections []string
	seen := make(map[string]bool)
	for _, o := range orders {
		order, ok := o.(map[string]any)
		if !ok {
			continue
		}
		list, _ := order[symKey(SymSections)].([]any)
		for _, s := range list {
			name, ok := s.(string)
			if !ok || name == "" || seen[name] {
				continue
			}
			seen[name] = true
			sections = append(sections, name)
		}
	}
	if len(sections) == 0 {
		return nil, bookerr.New(bookerr.InvalidContainer, "KFX container has an empty reading order")
	}
	return sections, nil
}

// importResources pairs every $164 external_resource descriptor with its
// $417/$418 raw entity (matched through the resource's own $165 location
// field, which names the raw entity) and returns book.Book-ready asset
// paths and bytes, grounded on BuildImageResourceFragments/frag_font_book.go.
func importResources(c *Container, names *nameResolver, log *zap.Logger) ([]string, map[string][]byte, map[string]string) {
	var assetPaths []string
	data := make(map[string][]byte)
	hrefByResourceName := make(map[string]string)

	for _, frag := range c.Fragments.GetByType(SymExtResource) {
		res, ok := frag.Value.(map[string]any)
		if !ok {
			continue
		}
		resourceName, _ := res[symKey(SymResourceName)].(string)
		location, _ := res[symKey(SymLocation)].(string)
		mimeType, _ := res[symKey(SymMIME)].(string)
		if location == "" {
			continue
		}

		rawID, ok := names.id(location)
		if !ok {
			if log != nil {
				log.Warn("KFX resource location has no matching raw entity", zap.String("location", location))
			}
			continue
		}
		rawFrag := c.Fragments.Get(SymRawMedia, rawID)
		if rawFrag == nil {
			rawFrag = c.Fragments.Get(SymRawFont, rawID)
		}
		if rawFrag == nil {
			if log != nil {
				log.Warn("KFX resource has no raw entity", zap.String("location", location))
			}
			continue
		}
		raw, ok := rawFrag.Value.(RawValue)
		if !ok {
			continue
		}
		if resourceName == "" {
			resourceName = location
		}

		href := "resources/" + safeAssetName(resourceName) + extensionForMIME(mimeType)
		assetPaths = append(assetPaths, href)
		data[href] = []byte(raw)
		hrefByResourceName[resourceName] = href
	}

	return assetPaths, data, hrefByResourceName
}

func safeAssetName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

func extensionForMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "font/ttf":
		return ".ttf"
	case "font/otf":
		return ".otf"
	case "font/woff":
		return ".woff"
	case "font/woff2":
		return ".woff2"
	default:
		return ""
	}
}

// importer holds the state needed while walking section/storyline content,
// so each rendered element id can be recorded against the section it came
// from for later TOC/landmark resolution.
type importer struct {
	container          *Container
	names              *nameResolver
	hrefByResourceName map[string]string
	eidToSection       map[int64]string
}

const xhtmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n" +
	`<html xmlns="http://www.w3.org/1999/xhtml"><body>` + "\n"
const xhtmlFooter = `</body></html>`

// renderSection renders one $260 section's page-template storylines into a
// single XHTML chapter body.
func (imp *importer) renderSection(sectionName string) ([]byte, error) {
	id, ok := imp.names.id(sectionName)
	if !ok {
		return nil, bookerr.New(bookerr.MissingReference, "unresolved KFX section name "+sectionName)
	}
	sectionFrag := imp.container.Fragments.Get(SymSection, id)
	if sectionFrag == nil {
		return nil, bookerr.New(bookerr.MissingReference, "missing KFX section fragment "+sectionName)
	}
	section, _ := sectionFrag.Value.(map[string]any)
	templates, _ := section[symKey(SymPageTemplates)].([]any)

	var body strings.Builder
	for _, t := range templates {
		tmpl, ok := t.(map[string]any)
		if !ok {
			continue
		}
		storyName, _ := tmpl[symKey(SymStoryName)].(string)
		if storyName == "" {
			continue
		}
		if err := imp.renderStoryline(storyName, sectionName, &body); err != nil {
			return nil, err
		}
	}

	var out strings.Builder
	out.WriteString(xhtmlHeader)
	out.WriteString(body.String())
	out.WriteString(xhtmlFooter)
	return []byte(out.String()), nil
}

func (imp *importer) renderStoryline(storyName, sectionName string, out *strings.Builder) error {
	id, ok := imp.names.id(storyName)
	if !ok {
		return bookerr.New(bookerr.MissingReference, "unresolved KFX storyline name "+storyName)
	}
	frag := imp.container.Fragments.Get(SymStoryline, id)
	if frag == nil {
		return bookerr.New(bookerr.MissingReference, "missing KFX storyline fragment "+storyName)
	}
	story, _ := frag.Value.(map[string]any)
	entries, _ := story[symKey(SymContentList)].([]any)
	for _, e := range entries {
		if err := imp.renderContentEntry(e, sectionName, out); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) renderContentEntry(e any, sectionName string, out *strings.Builder) error {
	switch v := e.(type) {
	case string:
		out.WriteString("<p>")
		out.WriteString(html.EscapeString(v))
		out.WriteString("</p>\n")
		return nil
	case map[string]any:
		return imp.renderContentStruct(v, sectionName, out)
	default:
		return nil
	}
}

func (imp *importer) renderContentStruct(entry map[string]any, sectionName string, out *strings.Builder) error {
	if eid, ok := intField(entry, SymUniqueID); ok {
		imp.eidToSection[eid] = sectionName
	}
	typ, _ := entry[symKey(SymType)].(string)

	switch typ {
	case symKey(SymImage):
		resourceName, _ := entry[symKey(SymResourceName)].(string)
		alt, _ := entry[symKey(SymAltText)].(string)
		href := imp.hrefByResourceName[resourceName]
		out.WriteString(fmt.Sprintf("<img src=%q alt=%q/>\n", href, alt))
		return nil
	case symKey(SymText):
		text, err := imp.resolveContentText(entry)
		if err != nil {
			return err
		}
		if level, ok := intField(entry, SymYjHeadingLevel); ok && level > 0 && level <= 6 {
			out.WriteString(fmt.Sprintf("<h%d>%s</h%d>\n", level, html.EscapeString(text), level))
		} else {
			out.WriteString("<p>")
			out.WriteString(html.EscapeString(text))
			out.WriteString("</p>\n")
		}
		return nil
	default:
		// Container (or an unrecognised type): recurse into its nested
		// content_list rather than emit anything for the wrapper itself.
		children, _ := entry[symKey(SymContentList)].([]any)
		for _, child := range children {
			if err := imp.renderContentEntry(child, sectionName, out); err != nil {
				return err
			}
		}
		return nil
	}
}

// resolveContentText follows a $145 content reference ({name, $403 offset})
// to the paragraph string stored at that offset in the named $145 content
// fragment. Field keys here are literal strings ("name", "$403"), matching
// buildContentFragmentByName/NewContentEntry which write them the same way.
func (imp *importer) resolveContentText(entry map[string]any) (string, error) {
	ref, ok := entry[symKey(SymContent)].(map[string]any)
	if !ok {
		return "", nil
	}
	name, _ := ref["name"].(string)
	if name == "" {
		return "", nil
	}
	offset, _ := intFieldKey(ref, "$403")

	id, ok := imp.names.id(name)
	if !ok {
		return "", bookerr.New(bookerr.MissingReference, "unresolved KFX content fragment name "+name)
	}
	frag := imp.container.Fragments.Get(SymContent, id)
	if frag == nil {
		return "", bookerr.New(bookerr.MissingReference, "missing KFX content fragment "+name)
	}
	content, ok := frag.Value.(map[string]any)
	if !ok {
		return "", nil
	}
	list, _ := content[symKey(SymContentList)].([]any)
	if offset < 0 || offset >= int64(len(list)) {
		return "", nil
	}
	text, _ := list[offset].(string)
	return text, nil
}

func intField(m map[string]any, sym KFXSymbol) (int64, bool) {
	return intFieldKey(m, symKey(sym))
}

func intFieldKey(m map[string]any, key string) (int64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// importNavigation reads the $389 book_navigation root fragment's TOC and
// landmarks containers, grounded on BuildNavigation. Targets resolve to the
// owning section recorded in imp.eidToSection while rendering, so a target
// whose section wasn't reached by any reading order entry is dropped.
func (imp *importer) importNavigation() ([]*book.TOCNode, []book.Landmark) {
	frag := imp.container.Fragments.GetRoot(SymBookNavigation)
	if frag == nil {
		return nil, nil
	}
	navList, ok := frag.Value.([]any)
	if !ok {
		return nil, nil
	}

	var toc []*book.TOCNode
	var landmarks []book.Landmark
	for _, ro := range navList {
		roMap, ok := ro.(map[string]any)
		if !ok {
			continue
		}
		containers, _ := roMap[symKey(SymNavContainers)].([]any)
		for _, nc := range containers {
			cont, ok := nc.(map[string]any)
			if !ok {
				continue
			}
			navType, _ := cont[symKey(SymNavType)].(string)
			entries, _ := cont[symKey(SymEntries)].([]any)
			switch navType {
			case symKey(SymTOC):
				toc = append(toc, imp.importTOCEntries(entries)...)
			case symKey(SymLandmarks):
				landmarks = append(landmarks, imp.importLandmarkEntries(entries)...)
			}
		}
	}
	return toc, landmarks
}

func (imp *importer) importTOCEntries(entries []any) []*book.TOCNode {
	var nodes []*book.TOCNode
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		href := imp.hrefForTargetPosition(entry)
		if href == "" {
			continue
		}
		node := &book.TOCNode{Href: href}
		if repr, ok := entry[symKey(SymRepresentation)].(map[string]any); ok {
			if label, ok := repr[symKey(SymLabel)].(string); ok {
				node.Title = label
			}
		}
		if children, ok := entry[symKey(SymEntries)].([]any); ok {
			node.Children = imp.importTOCEntries(children)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func (imp *importer) importLandmarkEntries(entries []any) []book.Landmark {
	var out []book.Landmark
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		href := imp.hrefForTargetPosition(entry)
		if href == "" {
			continue
		}
		kind, _ := entry[symKey(SymLandmarkType)].(string)
		out = append(out, book.Landmark{Kind: landmarkKindFor(kind), Href: href})
	}
	return out
}

func (imp *importer) hrefForTargetPosition(entry map[string]any) string {
	pos, ok := entry[symKey(SymTargetPosition)].(map[string]any)
	if !ok {
		return ""
	}
	eid, ok := intField(pos, SymUniqueID)
	if !ok {
		return ""
	}
	return imp.eidToSection[eid]
}

func landmarkKindFor(kfxType string) book.LandmarkKind {
	switch kfxType {
	case symKey(SymCoverPage):
		return book.LandmarkCover
	case symKey(SymTOC):
		return book.LandmarkTOC
	default:
		return book.LandmarkBodymatter
	}
}
