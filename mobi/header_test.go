package mobi

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestParseHeaderRoundTripViaBuildRecord0(t *testing.T) {
	exth := []ExthRecord{
		{Type: ExthAuthor, Value: []byte("Jane Doe")},
		{Type: ExthLanguage, Value: []byte("en")},
	}
	record0 := BuildRecord0(Record0Params{
		Compression:     CompressionPalmDoc,
		TextLength:      12345,
		TextRecordCount: 7,
		TextRecordSize:  4096,
		MobiType:        2,
		TextEncoding:    65001,
		UID:             99,
		FormatVersion:   6,
		Exth:            exth,
		Title:           "My Book",
	})

	h, err := ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Compression != CompressionPalmDoc {
		t.Errorf("Compression = %d, want %d", h.Compression, CompressionPalmDoc)
	}
	if h.TextLength != 12345 {
		t.Errorf("TextLength = %d, want 12345", h.TextLength)
	}
	if h.TextRecordCount != 7 {
		t.Errorf("TextRecordCount = %d, want 7", h.TextRecordCount)
	}
	if h.UID != 99 {
		t.Errorf("UID = %d, want 99", h.UID)
	}
	if h.FormatVersion != 6 {
		t.Errorf("FormatVersion = %d, want 6", h.FormatVersion)
	}
	if h.FullTitle != "My Book" {
		t.Errorf("FullTitle = %q, want %q", h.FullTitle, "My Book")
	}

	author, ok := h.Find(ExthAuthor)
	if !ok || string(author) != "Jane Doe" {
		t.Errorf("Find(ExthAuthor) = %q, %v, want %q, true", author, ok, "Jane Doe")
	}
	lang, ok := h.Find(ExthLanguage)
	if !ok || string(lang) != "en" {
		t.Errorf("Find(ExthLanguage) = %q, %v, want %q, true", lang, ok, "en")
	}
	if _, ok := h.Find(ExthPublisher); ok {
		t.Error("Find(ExthPublisher) should be absent")
	}
}

func TestParseHeaderUpdatedTitleOverridesFullName(t *testing.T) {
	record0 := BuildRecord0(Record0Params{
		MobiType:      2,
		TextEncoding:  65001,
		FormatVersion: 6,
		Title:         "Original Title",
		Exth: []ExthRecord{
			{Type: ExthUpdatedTitle, Value: []byte("Updated Title")},
		},
	})
	h, err := ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.FullTitle != "Updated Title" {
		t.Errorf("FullTitle = %q, want %q", h.FullTitle, "Updated Title")
	}
}

func TestParseHeaderTooShort(t *testing.T) {
	if _, err := ParseHeader(make([]byte, 10)); err == nil {
		t.Fatal("expected error for record0 shorter than the PalmDOC sub-header")
	}
}

func TestParseHeaderMissingMobiMagic(t *testing.T) {
	record0 := make([]byte, 40)
	copy(record0[16:20], "NOPE")
	if _, err := ParseHeader(record0); err == nil {
		t.Fatal("expected error for missing MOBI magic")
	}
}

func TestParseHeaderRejectsEncryption(t *testing.T) {
	record0 := BuildRecord0(Record0Params{MobiType: 2, TextEncoding: 65001, FormatVersion: 6})
	binary.BigEndian.PutUint16(record0[12:14], 2) // encryption scheme 2
	if _, err := ParseHeader(record0); err == nil {
		t.Fatal("expected error for encrypted record0")
	}
}

func TestHeaderIsKF8(t *testing.T) {
	record0 := BuildRecord0(Record0Params{MobiType: 8, TextEncoding: 65001, FormatVersion: 8})
	h, err := ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if !h.IsKF8() {
		t.Error("expected IsKF8() to be true for FormatVersion 8")
	}
}

func TestHeaderKF8BoundaryRecord(t *testing.T) {
	boundary := make([]byte, 4)
	binary.BigEndian.PutUint32(boundary, 42)
	record0 := BuildRecord0(Record0Params{
		MobiType:      2,
		TextEncoding:  65001,
		FormatVersion: 6,
		Exth: []ExthRecord{
			{Type: ExthKF8Boundary, Value: boundary},
		},
	})
	h, err := ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	idx, ok := h.KF8BoundaryRecord()
	if !ok || idx != 42 {
		t.Errorf("KF8BoundaryRecord() = %d, %v, want 42, true", idx, ok)
	}
}

func TestHeaderKF8BoundaryRecordAbsent(t *testing.T) {
	record0 := BuildRecord0(Record0Params{MobiType: 2, TextEncoding: 65001, FormatVersion: 6})
	h, err := ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if _, ok := h.KF8BoundaryRecord(); ok {
		t.Error("expected KF8BoundaryRecord to report absent when EXTH 121 is missing")
	}
}

func TestTitleOrDefault(t *testing.T) {
	record0 := BuildRecord0(Record0Params{MobiType: 2, TextEncoding: 65001, FormatVersion: 6})
	h, err := ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if got := h.TitleOrDefault("fallback-name"); got != "fallback-name" {
		t.Errorf("TitleOrDefault() = %q, want %q", got, "fallback-name")
	}

	record0 = BuildRecord0(Record0Params{MobiType: 2, TextEncoding: 65001, FormatVersion: 6, Title: "Real Title"})
	h, err = ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if got := h.TitleOrDefault("fallback-name"); got != "Real Title" {
		t.Errorf("TitleOrDefault() = %q, want %q", got, "Real Title")
	}
}

func TestStripTrailingDataZeroFlags(t *testing.T) {
	record := []byte("hello world")
	stripped := StripTrailingData(record, 0)
	if !bytes.Equal(stripped, record) {
		t.Errorf("StripTrailingData with zero flags should be a no-op: got %q", stripped)
	}
}

func TestStripTrailingDataVarintTrailer(t *testing.T) {
	// A single-byte backward varint (high bit set, low 7 bits = 1) whose
	// size includes itself, so it trims exactly its own byte.
	record := append([]byte("payload"), 0x81)
	stripped := StripTrailingData(record, 1<<1)
	if string(stripped) != "payload" {
		t.Errorf("StripTrailingData = %q, want %q", stripped, "payload")
	}
}

func TestStripTrailingDataMultibyteCompression(t *testing.T) {
	record := []byte("textAB")
	// Low 2 bits of the last byte ('B' = 0x42) encode trim length - 1 = 2,
	// so 3 bytes ("tAB") get trimmed when bit 0 is set.
	stripped := StripTrailingData(record, 1)
	want := record[:len(record)-(int(record[len(record)-1]&0x3)+1)]
	if !bytes.Equal(stripped, want) {
		t.Errorf("StripTrailingData = %q, want %q", stripped, want)
	}
}

func TestDetectMobi6(t *testing.T) {
	record0 := BuildRecord0(Record0Params{MobiType: 2, TextEncoding: 65001, FormatVersion: 6})
	h, err := ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	kind, idx, err := Detect(h, func(int) ([]byte, error) { return nil, nil })
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if kind != FormatMobi6 || idx != 0 {
		t.Errorf("Detect = %v, %d, want FormatMobi6, 0", kind, idx)
	}
}

func TestDetectKF8Pure(t *testing.T) {
	record0 := BuildRecord0(Record0Params{MobiType: 8, TextEncoding: 65001, FormatVersion: 8})
	h, err := ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	kind, _, err := Detect(h, func(int) ([]byte, error) { return nil, nil })
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if kind != FormatKF8Pure {
		t.Errorf("Detect = %v, want FormatKF8Pure", kind)
	}
}

func TestDetectKF8Combo(t *testing.T) {
	boundary := make([]byte, 4)
	binary.BigEndian.PutUint32(boundary, 10)
	record0 := BuildRecord0(Record0Params{
		MobiType:      2,
		TextEncoding:  65001,
		FormatVersion: 6,
		Exth: []ExthRecord{
			{Type: ExthKF8Boundary, Value: boundary},
		},
	})
	h, err := ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	recordAt := func(idx int) ([]byte, error) {
		if idx == 9 {
			return []byte("BOUNDARY"), nil
		}
		return nil, nil
	}
	kind, idx, err := Detect(h, recordAt)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if kind != FormatKF8Combo || idx != 10 {
		t.Errorf("Detect = %v, %d, want FormatKF8Combo, 10", kind, idx)
	}
}

func TestDetectKF8BoundaryWithoutMagicFallsBackToMobi6(t *testing.T) {
	boundary := make([]byte, 4)
	binary.BigEndian.PutUint32(boundary, 10)
	record0 := BuildRecord0(Record0Params{
		MobiType:      2,
		TextEncoding:  65001,
		FormatVersion: 6,
		Exth: []ExthRecord{
			{Type: ExthKF8Boundary, Value: boundary},
		},
	})
	h, err := ParseHeader(record0)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	recordAt := func(int) ([]byte, error) { return []byte("not a boundary marker"), nil }
	kind, _, err := Detect(h, recordAt)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if kind != FormatMobi6 {
		t.Errorf("Detect = %v, want FormatMobi6 when the boundary record lacks the BOUNDARY magic", kind)
	}
}

func TestBuildEXTHPadding(t *testing.T) {
	out := BuildEXTH([]ExthRecord{{Type: ExthAuthor, Value: []byte("A")}})
	if len(out)%4 != 0 {
		t.Errorf("BuildEXTH output length %d is not 4-byte aligned", len(out))
	}
	if string(out[0:4]) != "EXTH" {
		t.Errorf("BuildEXTH missing EXTH magic: %q", out[0:4])
	}
}
