// Package mobi parses MOBI record 0 (PalmDOC header + MOBI header + EXTH)
// and detects MOBI6/KF8/AZW3 format variants.
package mobi

import (
	"encoding/binary"
	"strings"

	"bookforge/bookerr"
)

// Compression schemes declared in the PalmDOC sub-header.
const (
	CompressionNone    = 1
	CompressionPalmDoc = 2
	CompressionHuff    = 0x4448 // "HD"
)

// EXTH record types used by metadata extraction.
const (
	ExthAuthor        = 100
	ExthPublisher     = 101
	ExthDescription   = 103
	ExthSubject       = 105
	ExthDate          = 106
	ExthRights        = 109
	ExthASIN          = 113
	ExthCoverOffset   = 201
	ExthThumbOffset   = 202
	ExthUpdatedTitle  = 503
	ExthLanguage      = 524
	ExthKF8Boundary   = 121
)

// ExthRecord is one (type, bytes) tuple from the EXTH block.
type ExthRecord struct {
	Type  uint32
	Value []byte
}

// Header holds the parsed contents of MOBI record 0.
type Header struct {
	Compression     uint16
	TextLength      uint32
	TextRecordCount uint16
	TextRecordSize  uint16
	Encryption      uint16

	HeaderLength    uint32
	MobiType        uint32
	TextEncoding    uint32 // 1252 or 65001
	UID             uint32
	FormatVersion   uint32 // 8 => KF8

	FirstImageRecord  uint32
	HuffRecordOffset  uint32
	HuffRecordCount   uint32
	FDSTRecord        uint32
	FLISRecord        uint32
	FCISRecord        uint32
	SkeletonIndex     uint32
	FullNameOffset    uint32
	FullNameLength    uint32
	ChunkIndex        uint32
	NCXIndex          uint32
	OtherIndex        uint32

	ExthFlags uint32
	Exth      []ExthRecord

	// ExtraDataFlags is the 16-bit trailing-data flag word read from
	// record 0; it says which trailers StripTrailingData removes from
	// every text record.
	ExtraDataFlags uint16

	FullTitle string

	raw []byte
}

// Find returns the first EXTH record of the given type, if present.
func (h *Header) Find(t uint32) ([]byte, bool) {
	for _, r := range h.Exth {
		if r.Type == t {
			return r.Value, true
		}
	}
	return nil, false
}

// IsKF8 reports whether this header describes a pure KF8 (AZW3) file.
func (h *Header) IsKF8() bool { return h.FormatVersion == 8 }

// KF8BoundaryRecord reports the record index of a combo MOBI6+KF8 file's
// KF8 boundary marker, if EXTH 121 is present.
func (h *Header) KF8BoundaryRecord() (uint32, bool) {
	v, ok := h.Find(ExthKF8Boundary)
	if !ok || len(v) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

// ParseHeader parses MOBI record 0 starting at offset 0 within record0.
func ParseHeader(record0 []byte) (*Header, error) {
	if len(record0) < 16 {
		return nil, bookerr.New(bookerr.InvalidContainer, "MOBI record 0 too short for PalmDOC sub-header")
	}
	h := &Header{raw: record0}
	h.Compression = binary.BigEndian.Uint16(record0[0:2])
	h.TextLength = binary.BigEndian.Uint32(record0[4:8])
	h.TextRecordCount = binary.BigEndian.Uint16(record0[8:10])
	h.TextRecordSize = binary.BigEndian.Uint16(record0[10:12])
	h.Encryption = binary.BigEndian.Uint16(record0[12:14])
	if h.Encryption != 0 {
		return nil, bookerr.New(bookerr.UnsupportedFeature, "encrypted MOBI files are not supported")
	}

	if len(record0) < 16+4 || string(record0[16:20]) != "MOBI" {
		return nil, bookerr.New(bookerr.InvalidHeader, "missing MOBI header magic")
	}
	h.HeaderLength = binary.BigEndian.Uint32(record0[20:24])
	h.MobiType = binary.BigEndian.Uint32(record0[24:28])
	h.TextEncoding = binary.BigEndian.Uint32(record0[28:32])
	h.UID = binary.BigEndian.Uint32(record0[32:36])
	h.FormatVersion = binary.BigEndian.Uint32(record0[36:40])

	hdrEnd := 16 + int(h.HeaderLength)
	if hdrEnd > len(record0) {
		hdrEnd = len(record0)
	}

	readU32 := func(off int) uint32 {
		if off+4 > len(record0) {
			return 0xFFFFFFFF
		}
		return binary.BigEndian.Uint32(record0[off : off+4])
	}
	h.FirstImageRecord = readU32(16 + 108)
	h.HuffRecordOffset = readU32(16 + 112)
	h.HuffRecordCount = readU32(16 + 116)
	h.FullNameOffset = readU32(16 + 84)
	h.FullNameLength = readU32(16 + 88)
	h.FDSTRecord = readU32(16 + 192)
	h.SkeletonIndex = readU32(16 + 164)
	h.ChunkIndex = readU32(16 + 180)
	h.NCXIndex = readU32(16 + 176)
	h.OtherIndex = readU32(16 + 184)
	if hdrEnd > 16+32 {
		h.ExthFlags = readU32(16 + 128)
	}
	if off := 16 + 226; off+2 <= len(record0) {
		h.ExtraDataFlags = binary.BigEndian.Uint16(record0[off : off+2])
	}

	if h.ExthFlags&0x40 != 0 {
		exth, err := parseExth(record0, hdrEnd)
		if err != nil {
			return nil, err
		}
		h.Exth = exth
	}

	if h.FullNameLength > 0 && int(h.FullNameOffset)+int(h.FullNameLength) <= len(record0) {
		h.FullTitle = string(record0[h.FullNameOffset : h.FullNameOffset+h.FullNameLength])
	}
	if v, ok := h.Find(ExthUpdatedTitle); ok {
		h.FullTitle = string(v)
	}

	return h, nil
}

func parseExth(record0 []byte, offset int) ([]ExthRecord, error) {
	if offset+12 > len(record0) || string(record0[offset:offset+4]) != "EXTH" {
		return nil, bookerr.New(bookerr.InvalidHeader, "missing EXTH magic")
	}
	hdrLen := binary.BigEndian.Uint32(record0[offset+4 : offset+8])
	count := binary.BigEndian.Uint32(record0[offset+8 : offset+12])

	var records []ExthRecord
	pos := offset + 12
	end := offset + int(hdrLen)
	for i := 0; i < int(count) && pos+8 <= end && pos+8 <= len(record0); i++ {
		typ := binary.BigEndian.Uint32(record0[pos : pos+4])
		length := binary.BigEndian.Uint32(record0[pos+4 : pos+8])
		if length < 8 || pos+int(length) > len(record0) {
			return nil, bookerr.New(bookerr.InvalidHeader, "EXTH record length out of range")
		}
		records = append(records, ExthRecord{
			Type:  typ,
			Value: record0[pos+8 : pos+int(length)],
		})
		pos += int(length)
	}
	return records, nil
}

// StripTrailingData removes the per-record trailing-data flagged by
// trailingFlags from the end of a decompressed (or raw, pre-decompress)
// text record's trailing-data algorithm.
func StripTrailingData(record []byte, trailingFlags uint16) []byte {
	for bit := 15; bit >= 1; bit-- {
		if trailingFlags&(1<<uint(bit)) == 0 {
			continue
		}
		record = stripOneTrailer(record)
	}
	if trailingFlags&1 != 0 && len(record) > 0 {
		n := int(record[len(record)-1]&0x3) + 1
		if n <= len(record) {
			record = record[:len(record)-n]
		}
	}
	return record
}

func stripOneTrailer(record []byte) []byte {
	if len(record) == 0 {
		return record
	}
	var size, shift uint
	i := len(record) - 1
	for {
		b := record[i]
		size |= uint(b&0x7F) << shift
		shift += 7
		if b&0x80 != 0 || i == 0 {
			break
		}
		i--
	}
	trimLen := int(size)
	// size includes the varint bytes themselves.
	if trimLen > len(record) {
		trimLen = len(record)
	}
	return record[:len(record)-trimLen]
}

// TitleOrDefault returns the parsed full title, or the given default PDB
// name when neither the MOBI header full-name field nor EXTH 503
// supplied one (spec Scenario B).
func (h *Header) TitleOrDefault(pdbName string) string {
	if strings.TrimSpace(h.FullTitle) != "" {
		return h.FullTitle
	}
	return pdbName
}
