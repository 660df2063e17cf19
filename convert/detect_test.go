package convert

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func fakePalmDB() []byte {
	buf := make([]byte, 68)
	copy(buf[60:68], []byte("BOOKMOBI"))
	return buf
}

func fakeKFX() []byte {
	buf := make([]byte, 18)
	copy(buf, []byte("CONT"))
	return buf
}

func writeFakeEpub(t *testing.T, path string) {
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
		t.Fatalf("write mimetype entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func TestIsBookFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		write    func(path string)
		want     bool
	}{
		{
			name:     "kfx",
			filename: "test.kfx",
			write:    func(path string) { os.WriteFile(path, fakeKFX(), 0644) },
			want:     true,
		},
		{
			name:     "mobi",
			filename: "test.mobi",
			write:    func(path string) { os.WriteFile(path, fakePalmDB(), 0644) },
			want:     true,
		},
		{
			name:     "epub",
			filename: "test.epub",
			write:    func(path string) { writeFakeEpub(t, path) },
			want:     true,
		},
		{
			name:     "wrong extension",
			filename: "test.txt",
			write:    func(path string) { os.WriteFile(path, fakeKFX(), 0644) },
			want:     false,
		},
		{
			name:     "right extension, garbage content",
			filename: "test2.kfx",
			write:    func(path string) { os.WriteFile(path, []byte("not a kfx file"), 0644) },
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.filename)
			tt.write(path)

			got, err := isBookFile(path)
			if err != nil {
				t.Fatalf("isBookFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("isBookFile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsBookFile_NonExistent(t *testing.T) {
	_, err := isBookFile("/nonexistent/file.kfx")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("non-zip", func(t *testing.T) {
		path := filepath.Join(tmpDir, "plain.kfx")
		os.WriteFile(path, fakeKFX(), 0644)
		got, err := isArchiveFile(path)
		if err != nil {
			t.Fatalf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("expected KFX file not to be classified as an archive")
		}
	})

	t.Run("epub is not an archive to walk", func(t *testing.T) {
		path := filepath.Join(tmpDir, "book.epub")
		writeFakeEpub(t, path)
		got, err := isArchiveFile(path)
		if err != nil {
			t.Fatalf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("expected EPUB to be classified as a book, not a generic archive")
		}
	})

	t.Run("plain zip bundle is an archive", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bundle.zip")
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("create zip: %v", err)
		}
		w := zip.NewWriter(f)
		entry, err := w.Create("book.kfx")
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		entry.Write(fakeKFX())
		w.Close()
		f.Close()

		got, err := isArchiveFile(path)
		if err != nil {
			t.Fatalf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Error("expected a plain zip bundle of books to be classified as an archive")
		}
	})
}

func TestIsArchiveFile_NonExistent(t *testing.T) {
	_, err := isArchiveFile("/nonexistent/file.zip")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestIsBookInArchive(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "test.zip")

	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	w := zip.NewWriter(f)

	bookEntry, err := w.CreateHeader(&zip.FileHeader{Name: "book.kfx", Method: zip.Store})
	if err != nil {
		t.Fatalf("create book entry: %v", err)
	}
	bookEntry.Write(fakeKFX())

	otherEntry, err := w.CreateHeader(&zip.FileHeader{Name: "readme.txt", Method: zip.Store})
	if err != nil {
		t.Fatalf("create other entry: %v", err)
	}
	otherEntry.Write([]byte("not a book"))

	w.Close()
	f.Close()

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer r.Close()

	for _, zf := range r.File {
		want := zf.Name == "book.kfx"
		got, err := isBookInArchive(zf)
		if err != nil {
			t.Fatalf("isBookInArchive(%s) error = %v", zf.Name, err)
		}
		if got != want {
			t.Errorf("isBookInArchive(%s) = %v, want %v", zf.Name, got, want)
		}
	}
}
