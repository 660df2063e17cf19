package epub

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"bookforge/book"
	"bookforge/config"
	"bookforge/state"
)

func newTestBook() *book.Book {
	meta := book.Metadata{
		Title:      "Test Title",
		Authors:    []string{"Ann Author"},
		Language:   "en",
		Identifier: "urn:uuid:12345678-1234-1234-1234-123456789012",
		CoverHref:  "images/cover.jpg",
	}
	spine := []book.SpineItem{
		{ID: "ch1", SizeEstimate: 100},
		{ID: "ch2", SizeEstimate: 100},
	}
	toc := []*book.TOCNode{
		{Title: "Chapter One", Href: "ch1", Children: []*book.TOCNode{
			{Title: "Section 1.1", Href: "ch1#sec1"},
		}},
		{Title: "Chapter Two", Href: "ch2"},
	}
	landmarks := []book.Landmark{
		{Kind: book.LandmarkCover, Href: "images/cover.jpg"},
	}
	assetPaths := []string{"images/cover.jpg"}

	chapters := map[string][]byte{
		"ch1": []byte(`<p id="sec1">First chapter text.</p>`),
		"ch2": []byte(`<html xmlns="http://www.w3.org/1999/xhtml"><head></head><body><p>Second chapter.</p></body></html>`),
	}
	assets := map[string][]byte{
		"images/cover.jpg": {0xFF, 0xD8, 0xFF, 0xE0},
	}

	loadChapter := func(id string) ([]byte, error) { return chapters[id], nil }
	loadAsset := func(p string) ([]byte, error) { return assets[p], nil }

	return book.New(meta, spine, toc, landmarks, assetPaths, loadChapter, loadAsset)
}

func testContext() context.Context {
	return state.ContextWithEnv(context.Background())
}

func TestGenerateEpub3AndImportRoundTrip(t *testing.T) {
	log := zaptest.NewLogger(t)
	b := newTestBook()

	dir := t.TempDir()
	out := filepath.Join(dir, "book.epub")

	ctx := testContext()
	if err := Generate(ctx, b, config.OutputFmtEpub3, out, &config.DocumentConfig{}, log); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading generated epub: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("generated epub is empty")
	}

	imported, err := Import(data, log)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if imported.Metadata.Title != "Test Title" {
		t.Errorf("Metadata.Title = %q, want %q", imported.Metadata.Title, "Test Title")
	}
	if len(imported.Spine) != 2 {
		t.Fatalf("len(Spine) = %d, want 2", len(imported.Spine))
	}
	first, err := imported.Chapter(imported.Spine[0].ID)
	if err != nil {
		t.Fatalf("Chapter() error = %v", err)
	}
	if len(first) == 0 {
		t.Error("first chapter content is empty")
	}
}

func TestGenerateEpub2(t *testing.T) {
	log := zaptest.NewLogger(t)
	b := newTestBook()

	dir := t.TempDir()
	out := filepath.Join(dir, "book.epub")

	ctx := testContext()
	if err := Generate(ctx, b, config.OutputFmtEpub2, out, &config.DocumentConfig{}, log); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestGenerateRefusesOverwriteByDefault(t *testing.T) {
	log := zaptest.NewLogger(t)
	b := newTestBook()

	dir := t.TempDir()
	out := filepath.Join(dir, "book.epub")
	if err := os.WriteFile(out, []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := testContext()
	err := Generate(ctx, b, config.OutputFmtEpub3, out, &config.DocumentConfig{}, log)
	if err == nil {
		t.Fatal("expected error when output exists and overwrite is false")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"ch1":          "ch1",
		"chapter one":  "chapter-one",
		"a/b/c":        "a-b-c",
		"___leading__": "leading",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMediaTypeForAsset(t *testing.T) {
	if got := mediaTypeForAsset("images/cover.jpg", nil); got != "image/jpeg" {
		t.Errorf("mediaTypeForAsset(.jpg) = %q", got)
	}
	if got := mediaTypeForAsset("styles/main.css", nil); got != "text/css" {
		t.Errorf("mediaTypeForAsset(.css) = %q", got)
	}
}
