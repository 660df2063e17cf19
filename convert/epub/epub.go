// Package epub reads and writes the EPUB 2/3 container format, translating
// to and from the shared book.Book intermediate representation.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"

	"bookforge/book"
	"bookforge/config"
	"bookforge/state"
)

const (
	mimetypeContent = "application/epub+zip"
	oebpsDir        = "OEBPS"
	textDir         = "text"
	stylesDir       = "styles"
	stylesheetName  = "stylesheet.css"
	navID           = "nav"
	ncxID           = "ncx"
)

// manifestItem is one <manifest><item> entry, keyed by its zip-relative
// path under OEBPS.
type manifestItem struct {
	ID        string
	Href      string // relative to OEBPS
	MediaType string
	Properties string // epub3 "nav", "cover-image", etc; empty if none
}

// buildCtx carries everything the OPF/NCX/nav writers need once chapter
// and asset filenames have been assigned.
type buildCtx struct {
	b             *book.Book
	format        config.OutputFmt
	chapterHref   map[string]string // spine id -> href relative to OEBPS
	assetHref     map[string]string // asset path -> href relative to OEBPS
	manifest      []manifestItem
	hasStylesheet bool
}

// Generate writes b to outputPath in the requested EPUB variant.
func Generate(ctx context.Context, b *book.Book, format config.OutputFmt, outputPath string, docCfg *config.DocumentConfig, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	if _, err := os.Stat(outputPath); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputPath)
		}
		log.Warn("overwriting existing file", zap.String("file", outputPath))
		if err := os.Remove(outputPath); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	log.Info("generating EPUB", zap.Stringer("format", format), zap.String("output", outputPath))

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".epub-*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	defer tmp.Close()

	zw := zip.NewWriter(tmp)

	if err := writeMimetype(zw); err != nil {
		return fmt.Errorf("unable to write mimetype: %w", err)
	}
	if err := writeContainerXML(zw); err != nil {
		return fmt.Errorf("unable to write container.xml: %w", err)
	}

	bc := &buildCtx{
		b:           b,
		format:      format,
		chapterHref: make(map[string]string),
		assetHref:   make(map[string]string),
	}
	assignHrefs(bc)

	if err := writeChapters(zw, bc, log); err != nil {
		return fmt.Errorf("unable to write chapters: %w", err)
	}
	if err := writeAssets(zw, bc, log); err != nil {
		return fmt.Errorf("unable to write assets: %w", err)
	}
	if err := writeStylesheet(zw, bc, env.DefaultStyle); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	if format == config.OutputFmtEpub3 {
		if err := writeNav(zw, bc, log); err != nil {
			return fmt.Errorf("unable to write nav document: %w", err)
		}
	}
	if err := writeNCX(zw, bc, log); err != nil {
		return fmt.Errorf("unable to write toc.ncx: %w", err)
	}
	if err := writeOPF(zw, bc, log); err != nil {
		return fmt.Errorf("unable to write content.opf: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}

	if docCfg != nil && docCfg.FixZip {
		return copyZipWithoutDataDescriptors(tmpName, outputPath)
	}
	return copyFile(tmpName, outputPath)
}

// assignHrefs derives a stable, sanitized OEBPS-relative filename for every
// spine item and asset path.
func assignHrefs(bc *buildCtx) {
	seen := make(map[string]bool)
	for i, item := range bc.b.Spine {
		name := sanitizeFilename(item.ID)
		if name == "" {
			name = fmt.Sprintf("chapter%04d", i+1)
		}
		href := path.Join(textDir, name+".xhtml")
		href = dedupe(href, seen)
		bc.chapterHref[item.ID] = href
	}
	for _, p := range bc.b.AssetPaths {
		href := dedupe(path.Clean(p), seen)
		bc.assetHref[p] = href
	}
}

func dedupe(href string, seen map[string]bool) string {
	if !seen[href] {
		seen[href] = true
		return href
	}
	ext := path.Ext(href)
	base := strings.TrimSuffix(href, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", base, n, ext)
		if !seen[candidate] {
			seen[candidate] = true
			return candidate
		}
	}
}

func sanitizeFilename(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	return strings.Trim(sb.String(), "-_")
}

func writeMimetype(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mimetypeContent)
	return err
}

func writeContainerXML(zw *zip.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", "urn:oasis:names:tc:opendocument:xmlns:container")

	rootfiles := container.CreateElement("rootfiles")
	rootfile := rootfiles.CreateElement("rootfile")
	rootfile.CreateAttr("full-path", path.Join(oebpsDir, "content.opf"))
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")

	return writeXMLToZip(zw, "META-INF/container.xml", doc)
}

func writeChapters(zw *zip.Writer, bc *buildCtx, log *zap.Logger) error {
	for _, item := range bc.b.Spine {
		raw, err := bc.b.Chapter(item.ID)
		if err != nil {
			return err
		}
		href := bc.chapterHref[item.ID]
		doc, err := wrapXHTML(raw, relativeStylesheetHref(href))
		if err != nil {
			log.Warn("unable to parse chapter as XML, writing raw bytes", zap.String("id", item.ID), zap.Error(err))
			if err := writeDataToZip(zw, path.Join(oebpsDir, href), raw); err != nil {
				return err
			}
		} else if err := writeXMLToZip(zw, path.Join(oebpsDir, href), doc); err != nil {
			return err
		}
		bc.manifest = append(bc.manifest, manifestItem{
			ID:        manifestID(href),
			Href:      href,
			MediaType: "application/xhtml+xml",
		})
	}
	return nil
}

// wrapXHTML ensures raw is a complete XHTML document. Chapter bytes coming
// from the KF8/MOBI importers are already a reconstructed <html> document;
// bytes from a fragment-only source get a minimal shell.
func wrapXHTML(raw []byte, cssHref string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if bytes.Contains(raw[:min(64, len(raw))], []byte("<html")) {
		if err := doc.ReadFromBytes(raw); err != nil {
			return nil, err
		}
		return doc, nil
	}
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateDirective(`DOCTYPE html`)
	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	head := html.CreateElement("head")
	if cssHref != "" {
		link := head.CreateElement("link")
		link.CreateAttr("rel", "stylesheet")
		link.CreateAttr("type", "text/css")
		link.CreateAttr("href", cssHref)
	}
	body := html.CreateElement("body")
	frag := etree.NewDocument()
	if err := frag.ReadFromBytes([]byte("<div>" + string(raw) + "</div>")); err == nil {
		if root := frag.Root(); root != nil {
			for _, child := range root.Child {
				body.AddChild(child)
			}
		}
	} else {
		body.SetText(string(raw))
	}
	return doc, nil
}

func relativeStylesheetHref(chapterHref string) string {
	depth := strings.Count(chapterHref, "/")
	return strings.Repeat("../", depth) + path.Join(stylesDir, stylesheetName)
}

func writeAssets(zw *zip.Writer, bc *buildCtx, log *zap.Logger) error {
	for _, p := range bc.b.AssetPaths {
		data, err := bc.b.Asset(p)
		if err != nil {
			return err
		}
		href := bc.assetHref[p]
		if err := writeDataToZip(zw, path.Join(oebpsDir, href), data); err != nil {
			return err
		}
		mt := mediaTypeForAsset(href, data)
		props := ""
		if bc.b.Metadata.CoverHref == p {
			props = "cover-image"
		}
		bc.manifest = append(bc.manifest, manifestItem{
			ID:         manifestID(href),
			Href:       href,
			MediaType:  mt,
			Properties: props,
		})
	}
	return nil
}

func writeStylesheet(zw *zip.Writer, bc *buildCtx, defaultStyle []byte) error {
	if len(defaultStyle) == 0 {
		return nil
	}
	href := path.Join(stylesDir, stylesheetName)
	if err := writeDataToZip(zw, path.Join(oebpsDir, href), defaultStyle); err != nil {
		return err
	}
	bc.hasStylesheet = true
	bc.manifest = append(bc.manifest, manifestItem{
		ID:        "css",
		Href:      href,
		MediaType: "text/css",
	})
	return nil
}

func manifestID(href string) string {
	return "item-" + sanitizeFilename(strings.TrimSuffix(path.Base(href), path.Ext(href)))
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	doc.Indent(2)
	if _, err := doc.WriteTo(&buf); err != nil {
		return err
	}
	return writeDataToZip(zw, name, buf.Bytes())
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func copyZipWithoutDataDescriptors(from, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}

// openZipReader opens an in-memory EPUB archive via the same ZIP
// implementation used for output, so reader and writer agree on how
// malformed local headers are tolerated.
func openZipReader(data []byte) (*fixzip.Reader, error) {
	return fixzip.NewReader(bytes.NewReader(data), int64(len(data)))
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destinationFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destinationFile.Close()

	if _, err = io.Copy(destinationFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	return destinationFile.Close()
}
