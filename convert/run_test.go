package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"bookforge/config"
	"bookforge/state"
)

// setupTestEnv creates a test environment with proper context and logger.
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	logger := zaptest.NewLogger(t)
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	// skip image optimization in tests - fixtures carry no real images
	cfg.Document.Images.Optimize = false
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	env.Overwrite = true
	return ctx, env
}

// writeSyntheticEpub builds a minimal but valid EPUB: container.xml, a
// content.opf with one spine item, and that item's XHTML.
func writeSyntheticEpub(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := zip.NewWriter(f)

	mt, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("create mimetype entry: %v", err)
	}
	if _, err := mt.Write([]byte("application/epub+zip")); err != nil {
		t.Fatalf("write mimetype: %v", err)
	}

	container, err := w.Create("META-INF/container.xml")
	if err != nil {
		t.Fatalf("create container.xml: %v", err)
	}
	if _, err := container.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)); err != nil {
		t.Fatalf("write container.xml: %v", err)
	}

	opf, err := w.Create("OEBPS/content.opf")
	if err != nil {
		t.Fatalf("create content.opf: %v", err)
	}
	if _, err := opf.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
    <dc:language>en</dc:language>
    <dc:identifier id="bookid">urn:uuid:test-book</dc:identifier>
  </metadata>
  <manifest>
    <item id="chap1" href="chap1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="chap1"/>
  </spine>
</package>`)); err != nil {
		t.Fatalf("write content.opf: %v", err)
	}

	chap, err := w.Create("OEBPS/chap1.xhtml")
	if err != nil {
		t.Fatalf("create chap1.xhtml: %v", err)
	}
	if _, err := chap.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body><p>Hello, world.</p></body></html>`)); err != nil {
		t.Fatalf("write chap1.xhtml: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func TestProcessBook_Epub(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "book.epub")
	writeSyntheticEpub(t, src)

	ctx, env := setupTestEnv(t)
	f, err := os.Open(src)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	outDir := filepath.Join(tmpDir, "out")
	if err := processBook(ctx, f, "book.epub", outDir, config.OutputFmtEpub3, env.Log); err != nil {
		t.Fatalf("processBook() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "book.epub")); err != nil {
		t.Errorf("expected output file to exist: %v", err)
	}
}

func TestProcessBook_RejectsGarbage(t *testing.T) {
	ctx, env := setupTestEnv(t)
	r := bytes.NewReader([]byte("not a recognized ebook container"))

	outDir := t.TempDir()
	if err := processBook(ctx, r, "garbage.epub", outDir, config.OutputFmtEpub3, env.Log); err == nil {
		t.Fatal("expected an error for unrecognized input")
	}
}

func TestProcess_DirectoryWalk(t *testing.T) {
	tmpDir := t.TempDir()
	srcDir := filepath.Join(tmpDir, "src")
	if err := os.MkdirAll(filepath.Join(srcDir, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeSyntheticEpub(t, filepath.Join(srcDir, "sub", "book.epub"))
	if err := os.WriteFile(filepath.Join(srcDir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatalf("write notes.txt: %v", err)
	}

	ctx, env := setupTestEnv(t)
	env.NoDirs = true
	outDir := filepath.Join(tmpDir, "out")

	if err := process(ctx, srcDir, outDir, config.OutputFmtEpub3, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "book.epub")); err != nil {
		t.Errorf("expected converted output to exist: %v", err)
	}
}

func TestProcess_SingleFile(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "book.epub")
	writeSyntheticEpub(t, src)

	ctx, env := setupTestEnv(t)
	outDir := filepath.Join(tmpDir, "out")

	if err := process(ctx, src, outDir, config.OutputFmtEpub3, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "book.epub")); err != nil {
		t.Errorf("expected converted output to exist: %v", err)
	}
}

func TestProcess_NonExistentSource(t *testing.T) {
	ctx, env := setupTestEnv(t)
	if err := process(ctx, "/nonexistent/path/book.epub", t.TempDir(), config.OutputFmtEpub3, env.Log); err == nil {
		t.Fatal("expected an error for a nonexistent source")
	}
}

func TestProcessArchive_Bundle(t *testing.T) {
	tmpDir := t.TempDir()

	epubPath := filepath.Join(tmpDir, "inner.epub")
	writeSyntheticEpub(t, epubPath)
	epubData, err := os.ReadFile(epubPath)
	if err != nil {
		t.Fatalf("read inner epub: %v", err)
	}

	bundlePath := filepath.Join(tmpDir, "bundle.zip")
	bf, err := os.Create(bundlePath)
	if err != nil {
		t.Fatalf("create bundle: %v", err)
	}
	w := zip.NewWriter(bf)
	entry, err := w.Create("library/book.epub")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := entry.Write(epubData); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close bundle: %v", err)
	}
	bf.Close()

	ctx, env := setupTestEnv(t)
	env.NoDirs = true
	outDir := filepath.Join(tmpDir, "out")

	if err := process(ctx, bundlePath, outDir, config.OutputFmtEpub3, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "book.epub")); err != nil {
		t.Errorf("expected converted output from archive entry to exist: %v", err)
	}
}
