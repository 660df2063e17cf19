package palmdb

import (
	"bytes"
	"testing"
)

func TestWriteParseRoundTrip(t *testing.T) {
	records := [][]byte{
		[]byte("record zero header"),
		[]byte("record one body text"),
		[]byte("record two, a little longer than the others"),
	}
	data := Write(WriteParams{
		Name:       "mybook",
		CreateTime: 111,
		ModifyTime: 222,
		Type:       [4]byte{'B', 'O', 'O', 'K'},
		Creator:    [4]byte{'M', 'O', 'B', 'I'},
		UniqueSeed: 42,
		Records:    records,
	})

	info, err := Parse(&MemSource{Data: data})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if info.Name != "mybook" {
		t.Errorf("Name = %q, want %q", info.Name, "mybook")
	}
	if info.CreateTime != 111 || info.ModifyTime != 222 {
		t.Errorf("CreateTime/ModifyTime = %d/%d, want 111/222", info.CreateTime, info.ModifyTime)
	}
	if info.Type != [4]byte{'B', 'O', 'O', 'K'} {
		t.Errorf("Type = %q, want BOOK", info.Type)
	}
	if info.Creator != [4]byte{'M', 'O', 'B', 'I'} {
		t.Errorf("Creator = %q, want MOBI", info.Creator)
	}
	if info.UniqueSeed != 42 {
		t.Errorf("UniqueSeed = %d, want 42", info.UniqueSeed)
	}
	if info.RecordCount() != len(records) {
		t.Fatalf("RecordCount() = %d, want %d", info.RecordCount(), len(records))
	}

	for i, want := range records {
		got, err := info.ReadRecord(&MemSource{Data: data}, i)
		if err != nil {
			t.Fatalf("ReadRecord(%d): %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("record %d = %q, want %q", i, got, want)
		}
	}
}

func TestRecordRangeLastRecordExtendsToEOF(t *testing.T) {
	records := [][]byte{[]byte("a"), []byte("bb")}
	data := Write(WriteParams{Records: records})

	info, err := Parse(&MemSource{Data: data})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, end, err := info.RecordRange(1)
	if err != nil {
		t.Fatalf("RecordRange: %v", err)
	}
	if end != int64(len(data)) {
		t.Errorf("last record end = %d, want %d (file length)", end, len(data))
	}
}

func TestRecordRangeIndexOutOfRange(t *testing.T) {
	info, err := Parse(&MemSource{Data: Write(WriteParams{Records: [][]byte{[]byte("x")}})})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, _, err := info.RecordRange(5); err == nil {
		t.Fatal("expected error for out-of-range record index")
	}
	if _, _, err := info.RecordRange(-1); err == nil {
		t.Fatal("expected error for negative record index")
	}
}

func TestParseTooShort(t *testing.T) {
	if _, err := Parse(&MemSource{Data: make([]byte, 10)}); err == nil {
		t.Fatal("expected error for a file shorter than the PalmDB header")
	}
}

func TestParseRecordTableExtendsPastEOF(t *testing.T) {
	hdr := make([]byte, headerLen)
	hdr[77] = 5 // claim 5 records with no record table or bodies following
	if _, err := Parse(&MemSource{Data: hdr}); err == nil {
		t.Fatal("expected error when the record table extends past end of file")
	}
}

func TestParseOffsetsOutOfOrder(t *testing.T) {
	data := Write(WriteParams{Records: [][]byte{[]byte("one"), []byte("two")}})
	// Corrupt the second record's offset entry (second table entry, bytes
	// headerLen+8..+12) to something earlier than the first.
	off := headerLen + 8
	for i := 0; i < 4; i++ {
		data[off+i] = 0
	}
	if _, err := Parse(&MemSource{Data: data}); err == nil {
		t.Fatal("expected error for out-of-order record offsets")
	}
}

func TestMemSourceReadAtBounds(t *testing.T) {
	src := &MemSource{Data: []byte("hello world")}
	if src.Len() != 11 {
		t.Fatalf("Len() = %d, want 11", src.Len())
	}
	got, err := src.ReadAt(6, 5)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(got) != "world" {
		t.Errorf("ReadAt = %q, want %q", got, "world")
	}
	if _, err := src.ReadAt(6, 100); err == nil {
		t.Error("expected error reading past end of buffer")
	}
	if _, err := src.ReadAt(-1, 1); err == nil {
		t.Error("expected error for negative offset")
	}
}
