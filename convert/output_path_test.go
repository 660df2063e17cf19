package convert

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"bookforge/config"
	"bookforge/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs bool, transliterate bool) *state.LocalEnv {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Document.FileNameTransliterate = transliterate

	return &state.LocalEnv{
		Log:    zaptest.NewLogger(t),
		Cfg:    cfg,
		NoDirs: noDirs,
	}
}

func TestBuildOutputPath_NoDirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false)

	result := buildOutputPath("books/author/book.fb2", "/output", config.OutputFmtEpub3, env)
	expected := filepath.Join("/output", "book.epub")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_WithDirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, false, false)

	result := buildOutputPath("books/author/book.fb2", "/output", config.OutputFmtEpub3, env)
	expected := filepath.Join("/output", "books", "author", "book.epub")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_DifferentFormats(t *testing.T) {
	tests := []struct {
		name   string
		format config.OutputFmt
		ext    string
	}{
		{"EPUB2", config.OutputFmtEpub2, ".epub"},
		{"EPUB3", config.OutputFmtEpub3, ".epub"},
		{"AZW3", config.OutputFmtAzw3, ".azw3"},
		{"KFX", config.OutputFmtKfx, ".kfx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, true, false)

			result := buildOutputPath("book.epub", "/output", tt.format, env)
			expected := filepath.Join("/output", "book"+tt.ext)

			if result != expected {
				t.Errorf("buildOutputPath() = %q, want %q", result, expected)
			}
		})
	}
}

func TestBuildOutputPath_Transliterate(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, true)

	result := buildOutputPath("Книга.fb2", "/output", config.OutputFmtEpub3, env)
	expected := filepath.Join("/output", "kniga.epub")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildDefaultFileName(t *testing.T) {
	tests := []struct {
		name          string
		src           string
		transliterate bool
		format        config.OutputFmt
		expected      string
	}{
		{"simple epub", "book.epub", false, config.OutputFmtEpub3, "book.epub"},
		{"with path", "path/to/book.mobi", false, config.OutputFmtEpub3, "book.epub"},
		{"azw3 format", "book.epub", false, config.OutputFmtAzw3, "book.azw3"},
		{"kfx format", "book.epub", false, config.OutputFmtKfx, "book.kfx"},
		{"transliterate", "Книга.fb2", true, config.OutputFmtEpub3, "kniga.epub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, true, tt.transliterate)

			result := buildDefaultFileName(tt.src, tt.format, env)
			if result != tt.expected {
				t.Errorf("buildDefaultFileName() = %q, want %q", result, tt.expected)
			}
		})
	}
}
