package epub

import (
	"archive/zip"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"bookforge/config"
)

const opfNamespace = "http://www.idpf.org/2007/opf"

func writeOPF(zw *zip.Writer, bc *buildCtx, log *zap.Logger) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	pkgVersion := "2.0"
	if bc.format == config.OutputFmtEpub3 {
		pkgVersion = "3.0"
	}

	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", opfNamespace)
	pkg.CreateAttr("version", pkgVersion)
	pkg.CreateAttr("unique-identifier", "BookId")

	writeMetadata(pkg, bc)
	writeManifest(pkg, bc)
	writeSpine(pkg, bc)
	if bc.format != config.OutputFmtEpub3 {
		writeGuide(pkg, bc)
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "content.opf"), doc)
}

func writeMetadata(pkg *etree.Element, bc *buildCtx) {
	meta := bc.b.Metadata
	md := pkg.CreateElement("metadata")
	md.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	md.CreateAttr("xmlns:opf", opfNamespace)

	title := md.CreateElement("dc:title")
	title.SetText(meta.Title)

	for _, author := range meta.Authors {
		creator := md.CreateElement("dc:creator")
		creator.CreateAttr("opf:role", "aut")
		creator.SetText(author)
	}

	lang := md.CreateElement("dc:language")
	if meta.Language != "" {
		lang.SetText(meta.Language)
	} else {
		lang.SetText("en")
	}

	ident := md.CreateElement("dc:identifier")
	ident.CreateAttr("id", "BookId")
	if meta.Identifier != "" {
		ident.CreateAttr("opf:scheme", "UUID")
		ident.SetText(meta.Identifier)
	} else {
		ident.CreateAttr("opf:scheme", "UUID")
		ident.SetText("urn:uuid:" + uuid.NewString())
	}

	if meta.Publisher != "" {
		md.CreateElement("dc:publisher").SetText(meta.Publisher)
	}
	if meta.Description != "" {
		md.CreateElement("dc:description").SetText(meta.Description)
	}
	for _, subj := range meta.Subjects {
		md.CreateElement("dc:subject").SetText(subj)
	}
	if meta.Date != "" {
		md.CreateElement("dc:date").SetText(meta.Date)
	}
	if meta.Rights != "" {
		md.CreateElement("dc:rights").SetText(meta.Rights)
	}

	if bc.format == config.OutputFmtEpub3 {
		modified := md.CreateElement("meta")
		modified.CreateAttr("property", "dcterms:modified")
		modified.SetText("2000-01-01T00:00:00Z")
	}

	if meta.CoverHref != "" {
		if href, ok := bc.assetHref[meta.CoverHref]; ok {
			cm := md.CreateElement("meta")
			cm.CreateAttr("name", "cover")
			cm.CreateAttr("content", manifestID(href))
		}
	}
}

func writeManifest(pkg *etree.Element, bc *buildCtx) {
	man := pkg.CreateElement("manifest")
	for _, item := range bc.manifest {
		el := man.CreateElement("item")
		el.CreateAttr("id", item.ID)
		el.CreateAttr("href", item.Href)
		el.CreateAttr("media-type", item.MediaType)
		if item.Properties != "" {
			el.CreateAttr("properties", item.Properties)
		}
	}
	if bc.format == config.OutputFmtEpub3 {
		navItem := man.CreateElement("item")
		navItem.CreateAttr("id", navID)
		navItem.CreateAttr("href", navID+".xhtml")
		navItem.CreateAttr("media-type", "application/xhtml+xml")
		navItem.CreateAttr("properties", "nav")
	}
	ncxItem := man.CreateElement("item")
	ncxItem.CreateAttr("id", ncxID)
	ncxItem.CreateAttr("href", "toc.ncx")
	ncxItem.CreateAttr("media-type", "application/x-dtbncx+xml")
}

func writeSpine(pkg *etree.Element, bc *buildCtx) {
	spine := pkg.CreateElement("spine")
	spine.CreateAttr("toc", ncxID)
	for _, item := range bc.b.Spine {
		href := bc.chapterHref[item.ID]
		ref := spine.CreateElement("itemref")
		ref.CreateAttr("idref", manifestID(href))
	}
}

func writeGuide(pkg *etree.Element, bc *buildCtx) {
	if len(bc.b.Landmarks) == 0 {
		return
	}
	guide := pkg.CreateElement("guide")
	for _, lm := range bc.b.Landmarks {
		href, ok := bc.chapterHref[lm.Href]
		if !ok {
			href, ok = bc.assetHref[lm.Href]
		}
		if !ok {
			continue
		}
		ref := guide.CreateElement("reference")
		ref.CreateAttr("type", string(lm.Kind))
		ref.CreateAttr("href", href)
	}
}

// mediaTypeForAsset determines an OPF manifest media-type, preferring the
// file extension and falling back to content sniffing for extensionless or
// ambiguous assets.
func mediaTypeForAsset(href string, data []byte) string {
	switch strings.ToLower(path.Ext(href)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	case ".css":
		return "text/css"
	case ".otf":
		return "application/vnd.ms-opentype"
	case ".ttf":
		return "application/x-font-truetype"
	case ".woff":
		return "application/font-woff"
	case ".woff2":
		return "font/woff2"
	case ".xhtml", ".html":
		return "application/xhtml+xml"
	}
	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return "application/octet-stream"
}
