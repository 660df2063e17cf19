package convert

import "testing"

func TestDefaultCoverSVGRasterizes(t *testing.T) {
	data, err := renderDefaultCover()
	if err != nil {
		t.Fatalf("render default cover: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty JPEG data")
	}
	if data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatalf("expected JPEG SOI marker, got % x", data[:2])
	}
}
