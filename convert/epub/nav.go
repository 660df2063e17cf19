package epub

import (
	"archive/zip"
	"path"
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"bookforge/book"
)

func writeNCX(zw *zip.Writer, bc *buildCtx, log *zap.Logger) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateDirective(`DOCTYPE ncx PUBLIC "-//NISO//DTD ncx 2005-1//EN" "http://www.daisy.org/z3986/2005/ncx-2005-1.dtd"`)

	ncx := doc.CreateElement("ncx")
	ncx.CreateAttr("xmlns", "http://www.daisy.org/z3986/2005/ncx/")
	ncx.CreateAttr("version", "2005-1")

	head := ncx.CreateElement("head")
	uid := head.CreateElement("meta")
	uid.CreateAttr("name", "dtb:uid")
	uid.CreateAttr("content", bc.b.Metadata.Identifier)
	depth := head.CreateElement("meta")
	depth.CreateAttr("name", "dtb:depth")
	depth.CreateAttr("content", "1")

	docTitle := ncx.CreateElement("docTitle")
	docTitle.CreateElement("text").SetText(bc.b.Metadata.Title)

	navMap := ncx.CreateElement("navMap")
	order := 0
	for _, node := range bc.b.TOC {
		writeNavPoint(navMap, bc, node, &order)
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "toc.ncx"), doc)
}

func writeNavPoint(parent *etree.Element, bc *buildCtx, node *book.TOCNode, order *int) {
	*order++
	np := parent.CreateElement("navPoint")
	np.CreateAttr("id", "navPoint-"+strconv.Itoa(*order))
	np.CreateAttr("playOrder", strconv.Itoa(*order))

	label := np.CreateElement("navLabel")
	label.CreateElement("text").SetText(node.Title)

	content := np.CreateElement("content")
	content.CreateAttr("src", resolveTOCHref(bc, node.Href))

	for _, child := range node.Children {
		writeNavPoint(np, bc, child, order)
	}
}

func writeNav(zw *zip.Writer, bc *buildCtx, log *zap.Logger) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateDirective(`DOCTYPE html`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	html.CreateAttr("xmlns:epub", "http://www.idpf.org/2007/ops")

	head := html.CreateElement("head")
	head.CreateElement("title").SetText(bc.b.Metadata.Title)

	body := html.CreateElement("body")

	tocNav := body.CreateElement("nav")
	tocNav.CreateAttr("epub:type", "toc")
	tocNav.CreateAttr("id", "toc")
	tocNav.CreateElement("h1").SetText("Table of Contents")
	ol := tocNav.CreateElement("ol")
	for _, node := range bc.b.TOC {
		writeNavLI(ol, bc, node)
	}

	if len(bc.b.Landmarks) > 0 {
		lmNav := body.CreateElement("nav")
		lmNav.CreateAttr("epub:type", "landmarks")
		lmNav.CreateAttr("id", "landmarks")
		lmOl := lmNav.CreateElement("ol")
		for _, lm := range bc.b.Landmarks {
			href, ok := bc.chapterHref[lm.Href]
			if !ok {
				href, ok = bc.assetHref[lm.Href]
			}
			if !ok {
				continue
			}
			li := lmOl.CreateElement("li")
			a := li.CreateElement("a")
			a.CreateAttr("epub:type", string(lm.Kind))
			a.CreateAttr("href", href)
			a.SetText(string(lm.Kind))
		}
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, navID+".xhtml"), doc)
}

func writeNavLI(parent *etree.Element, bc *buildCtx, node *book.TOCNode) {
	li := parent.CreateElement("li")
	a := li.CreateElement("a")
	a.CreateAttr("href", resolveTOCHref(bc, node.Href))
	a.SetText(node.Title)
	if len(node.Children) > 0 {
		ol := li.CreateElement("ol")
		for _, child := range node.Children {
			writeNavLI(ol, bc, child)
		}
	}
}

// resolveTOCHref turns a TOCNode.Href ("spineID" or "spineID#fragment")
// into an OEBPS-relative href using the assigned chapter filename.
func resolveTOCHref(bc *buildCtx, href string) string {
	id, frag, _ := splitFragment(href)
	chapterHref, ok := bc.chapterHref[id]
	if !ok {
		return href
	}
	if frag != "" {
		return chapterHref + "#" + frag
	}
	return chapterHref
}

func splitFragment(href string) (id, frag string, hasFrag bool) {
	for i := 0; i < len(href); i++ {
		if href[i] == '#' {
			return href[:i], href[i+1:], true
		}
	}
	return href, "", false
}

