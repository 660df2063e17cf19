package kf8read

import (
	"bytes"
	"testing"

	"bookforge/mobi"
	"bookforge/palmdb"
	"bookforge/palmdoc"
)

func buildMobi6File(t *testing.T, html string) []byte {
	t.Helper()
	compressed := palmdoc.Compress([]byte(html))
	record0 := mobi.BuildRecord0(mobi.Record0Params{
		Compression:     mobi.CompressionPalmDoc,
		TextLength:      uint32(len(html)),
		TextRecordCount: 1,
		TextRecordSize:  4096,
		MobiType:        2,
		TextEncoding:    65001,
		UID:             7,
		FormatVersion:   6,
		Title:           "My Book",
		Exth: []mobi.ExthRecord{
			{Type: mobi.ExthAuthor, Value: []byte("Jane Doe")},
		},
	})
	return palmdb.Write(palmdb.WriteParams{
		Name:       "mybook",
		Type:       [4]byte{'B', 'O', 'O', 'K'},
		Creator:    [4]byte{'M', 'O', 'B', 'I'},
		UniqueSeed: 1,
		Records:    [][]byte{record0, compressed},
	})
}

func TestReadMobi6RoundTripsTextAndMetadata(t *testing.T) {
	html := "<html><body><p>Hello world</p></body></html>"
	data := buildMobi6File(t, html)

	b, err := Read(&palmdb.MemSource{Data: data})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if b.Metadata.Title != "My Book" {
		t.Errorf("Title = %q, want %q", b.Metadata.Title, "My Book")
	}
	if len(b.Metadata.Authors) != 1 || b.Metadata.Authors[0] != "Jane Doe" {
		t.Errorf("Authors = %v, want [Jane Doe]", b.Metadata.Authors)
	}
	if len(b.Spine) != 1 {
		t.Fatalf("got %d spine items, want 1", len(b.Spine))
	}

	got, err := b.Chapter(b.Spine[0].ID)
	if err != nil {
		t.Fatalf("Chapter: %v", err)
	}
	if !bytes.Equal(got, []byte(html)) {
		t.Errorf("Chapter = %q, want %q", got, html)
	}
}

func TestReadMobi6UnknownChapterID(t *testing.T) {
	data := buildMobi6File(t, "<html><body><p>x</p></body></html>")
	b, err := Read(&palmdb.MemSource{Data: data})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, err := b.Chapter("nonexistent"); err == nil {
		t.Fatal("expected error for unknown chapter id")
	}
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	if _, err := Read(&palmdb.MemSource{Data: make([]byte, 10)}); err == nil {
		t.Fatal("expected error for a file too short to be a PalmDB")
	}
}

func TestReadRejectsEncryptedFile(t *testing.T) {
	data := buildMobi6File(t, "<html><body><p>x</p></body></html>")
	// The PalmDOC sub-header's encryption field lives at record0[12:14].
	// Flip it to a nonzero scheme to exercise ParseHeader's rejection path.
	// Record 0's body starts after the palmdb header (78) + 2 records *
	// 8-byte offset entries + 2 gap bytes.
	const headerLen = 78
	record0Offset := headerLen + 2*8 + 2
	data[record0Offset+12] = 0
	data[record0Offset+13] = 2
	if _, err := Read(&palmdb.MemSource{Data: data}); err == nil {
		t.Fatal("expected error for encrypted MOBI file")
	}
}
