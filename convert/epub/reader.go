package epub

import (
	"bytes"
	"path"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"bookforge/book"
	"bookforge/bookerr"
)

type opfManifestEntry struct {
	href       string // zip-absolute path
	mediaType  string
	properties string
}

// Import parses an EPUB archive's bytes into a book.Book.
func Import(data []byte, log *zap.Logger) (*book.Book, error) {
	entries, err := readZipEntries(data)
	if err != nil {
		return nil, err
	}

	opfPath, err := findOPFPath(entries)
	if err != nil {
		return nil, err
	}
	opfDir := path.Dir(opfPath)

	opfData, ok := entries[opfPath]
	if !ok {
		return nil, bookerr.New(bookerr.InvalidContainer, "OPF target not found in archive: "+opfPath)
	}
	opfDoc := etree.NewDocument()
	if err := opfDoc.ReadFromBytes(opfData); err != nil {
		return nil, bookerr.Wrap(bookerr.InvalidContainer, "parsing content.opf", err)
	}
	pkg := opfDoc.Root()
	if pkg == nil {
		return nil, bookerr.New(bookerr.InvalidContainer, "content.opf has no root element")
	}

	meta := parseOPFMetadata(pkg)
	manifest, coverID := parseOPFManifest(pkg, opfDir)
	spine := parseOPFSpine(pkg, manifest)

	landmarks := parseOPFGuide(pkg, manifest)

	var assetPaths []string
	for id, m := range manifest {
		if isSpineMediaType(m.mediaType) || id == navID || id == ncxID {
			continue
		}
		assetPaths = append(assetPaths, m.href)
	}
	if coverID != "" {
		if m, ok := manifest[coverID]; ok {
			meta.CoverHref = m.href
			hasAsset := false
			for _, p := range assetPaths {
				if p == m.href {
					hasAsset = true
					break
				}
			}
			if !hasAsset {
				assetPaths = append(assetPaths, m.href)
			}
		}
	}

	loadChapter := func(id string) ([]byte, error) {
		data, ok := entries[id]
		if !ok {
			return nil, bookerr.New(bookerr.MissingReference, "unknown chapter path "+id)
		}
		return data, nil
	}
	loadAsset := func(p string) ([]byte, error) {
		data, ok := entries[p]
		if !ok {
			return nil, bookerr.New(bookerr.MissingReference, "unknown asset path "+p)
		}
		return data, nil
	}

	toc := parseTOC(entries, manifest, opfDir, pkg)
	if len(landmarks) == 0 && meta.CoverHref != "" {
		landmarks = append(landmarks, book.Landmark{Kind: book.LandmarkCover, Href: meta.CoverHref})
	}

	return book.New(meta, spine, toc, landmarks, assetPaths, loadChapter, loadAsset), nil
}

func isSpineMediaType(mt string) bool {
	return mt == "application/xhtml+xml" || mt == "application/x-dtbncx+xml"
}

func readZipEntries(data []byte) (map[string][]byte, error) {
	zr, err := openZipReader(data)
	if err != nil {
		return nil, bookerr.Wrap(bookerr.InvalidContainer, "opening EPUB archive", err)
	}
	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, bookerr.Wrap(bookerr.InputIo, "reading zip entry "+f.Name, err)
		}
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(rc); err != nil {
			rc.Close()
			return nil, bookerr.Wrap(bookerr.InputIo, "reading zip entry "+f.Name, err)
		}
		rc.Close()
		entries[f.Name] = buf.Bytes()
	}
	return entries, nil
}

func findOPFPath(entries map[string][]byte) (string, error) {
	container, ok := entries["META-INF/container.xml"]
	if !ok {
		return "", bookerr.New(bookerr.InvalidContainer, "missing META-INF/container.xml")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(container); err != nil {
		return "", bookerr.Wrap(bookerr.InvalidContainer, "parsing container.xml", err)
	}
	rootfile := doc.FindElement("//rootfiles/rootfile")
	if rootfile == nil {
		return "", bookerr.New(bookerr.InvalidContainer, "container.xml has no rootfile")
	}
	fullPath := rootfile.SelectAttrValue("full-path", "")
	if fullPath == "" {
		return "", bookerr.New(bookerr.InvalidContainer, "rootfile missing full-path attribute")
	}
	return fullPath, nil
}

func parseOPFMetadata(pkg *etree.Element) book.Metadata {
	var meta book.Metadata
	md := pkg.FindElement("metadata")
	if md == nil {
		return meta
	}
	if el := md.FindElement("title"); el != nil {
		meta.Title = el.Text()
	}
	for _, el := range md.FindElements("creator") {
		meta.Authors = append(meta.Authors, el.Text())
	}
	if el := md.FindElement("language"); el != nil {
		meta.Language = el.Text()
	}
	if el := md.FindElement("identifier"); el != nil {
		meta.Identifier = el.Text()
	}
	if el := md.FindElement("publisher"); el != nil {
		meta.Publisher = el.Text()
	}
	if el := md.FindElement("description"); el != nil {
		meta.Description = el.Text()
	}
	for _, el := range md.FindElements("subject") {
		meta.Subjects = append(meta.Subjects, el.Text())
	}
	if el := md.FindElement("date"); el != nil {
		meta.Date = el.Text()
	}
	if el := md.FindElement("rights"); el != nil {
		meta.Rights = el.Text()
	}
	return meta
}

func parseOPFManifest(pkg *etree.Element, opfDir string) (map[string]opfManifestEntry, string) {
	manifest := make(map[string]opfManifestEntry)
	coverID := ""
	man := pkg.FindElement("manifest")
	if man == nil {
		return manifest, coverID
	}
	for _, item := range man.FindElements("item") {
		id := item.SelectAttrValue("id", "")
		href := item.SelectAttrValue("href", "")
		if id == "" || href == "" {
			continue
		}
		manifest[id] = opfManifestEntry{
			href:       path.Join(opfDir, href),
			mediaType:  item.SelectAttrValue("media-type", ""),
			properties: item.SelectAttrValue("properties", ""),
		}
		if strings.Contains(manifest[id].properties, "cover-image") {
			coverID = id
		}
	}
	if coverID == "" {
		md := pkg.FindElement("metadata")
		if md != nil {
			for _, m := range md.FindElements("meta") {
				if m.SelectAttrValue("name", "") == "cover" {
					coverID = m.SelectAttrValue("content", "")
				}
			}
		}
	}
	return manifest, coverID
}

func parseOPFSpine(pkg *etree.Element, manifest map[string]opfManifestEntry) []book.SpineItem {
	var spine []book.SpineItem
	sp := pkg.FindElement("spine")
	if sp == nil {
		return spine
	}
	for _, ref := range sp.FindElements("itemref") {
		idref := ref.SelectAttrValue("idref", "")
		m, ok := manifest[idref]
		if !ok {
			continue
		}
		spine = append(spine, book.SpineItem{ID: m.href})
	}
	return spine
}

func parseOPFGuide(pkg *etree.Element, manifest map[string]opfManifestEntry) []book.Landmark {
	var landmarks []book.Landmark
	guide := pkg.FindElement("guide")
	if guide == nil {
		return landmarks
	}
	opfDir := ""
	for _, ref := range guide.FindElements("reference") {
		typ := ref.SelectAttrValue("type", "")
		href := ref.SelectAttrValue("href", "")
		if href == "" {
			continue
		}
		landmarks = append(landmarks, book.Landmark{Kind: book.LandmarkKind(typ), Href: path.Join(opfDir, href)})
	}
	return landmarks
}

// parseTOC prefers an EPUB3 nav document's toc <nav>, falling back to
// toc.ncx's navMap.
func parseTOC(entries map[string][]byte, manifest map[string]opfManifestEntry, opfDir string, pkg *etree.Element) []*book.TOCNode {
	for _, m := range manifest {
		if !strings.Contains(m.properties, "nav") {
			continue
		}
		data, ok := entries[m.href]
		if !ok {
			continue
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			continue
		}
		navEl := findNavByType(doc, "toc")
		if navEl == nil {
			continue
		}
		navDir := path.Dir(m.href)
		if ol := navEl.FindElement("ol"); ol != nil {
			return parseNavOL(ol, navDir)
		}
	}

	ncxData, ok := entries[path.Join(opfDir, "toc.ncx")]
	if !ok {
		return nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(ncxData); err != nil {
		return nil
	}
	navMap := doc.FindElement("//navMap")
	if navMap == nil {
		return nil
	}
	return parseNavPoints(navMap, opfDir)
}

func findNavByType(doc *etree.Document, typ string) *etree.Element {
	for _, nav := range doc.FindElements("//nav") {
		for _, attr := range nav.Attr {
			if strings.HasSuffix(attr.Key, "type") && attr.Value == typ {
				return nav
			}
		}
	}
	return nil
}

func parseNavOL(ol *etree.Element, dir string) []*book.TOCNode {
	var nodes []*book.TOCNode
	for _, li := range ol.ChildElements() {
		if li.Tag != "li" {
			continue
		}
		a := li.FindElement("a")
		if a == nil {
			continue
		}
		node := &book.TOCNode{
			Title: strings.TrimSpace(a.Text()),
			Href:  path.Join(dir, a.SelectAttrValue("href", "")),
		}
		if childOL := li.FindElement("ol"); childOL != nil {
			node.Children = parseNavOL(childOL, dir)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func parseNavPoints(parent *etree.Element, dir string) []*book.TOCNode {
	var nodes []*book.TOCNode
	for _, np := range parent.ChildElements() {
		if np.Tag != "navPoint" {
			continue
		}
		label := np.FindElement("navLabel/text")
		content := np.FindElement("content")
		if content == nil {
			continue
		}
		node := &book.TOCNode{
			Href: path.Join(dir, content.SelectAttrValue("src", "")),
		}
		if label != nil {
			node.Title = strings.TrimSpace(label.Text())
		}
		node.Children = parseNavPoints(np, dir)
		nodes = append(nodes, node)
	}
	return nodes
}
