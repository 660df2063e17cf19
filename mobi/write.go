package mobi

import "encoding/binary"

// Record0Params holds everything BuildRecord0 needs to emit a MOBI/KF8
// record 0: the 16-byte PalmDOC sub-header, the MOBI header,
// an optional EXTH block, and the full title.
type Record0Params struct {
	Compression     uint16
	TextLength      uint32
	TextRecordCount uint16
	TextRecordSize  uint16

	MobiType      uint32 // 2 = MOBI6 book, 8 = KF8
	TextEncoding  uint32 // 65001 = UTF-8
	UID           uint32
	FormatVersion uint32 // 8 for KF8, 6 for MOBI6

	FirstImageRecord uint32
	HuffRecordOffset uint32
	HuffRecordCount  uint32
	FDSTRecord       uint32
	SkeletonIndex    uint32
	ChunkIndex       uint32
	NCXIndex         uint32
	OtherIndex       uint32
	ExtraDataFlags   uint16

	Exth  []ExthRecord
	Title string
}

const noIndex = 0xFFFFFFFF

// BuildEXTH serializes an EXTH block: "EXTH", header length, record count,
// then each (type, length, bytes) tuple, padded to a 4-byte boundary
//.
func BuildEXTH(records []ExthRecord) []byte {
	var body []byte
	for _, r := range records {
		length := uint32(8 + len(r.Value))
		body = append(body, u32be(r.Type)...)
		body = append(body, u32be(length)...)
		body = append(body, r.Value...)
	}
	hdrLen := 12 + len(body)
	padded := hdrLen
	for padded%4 != 0 {
		padded++
	}

	out := make([]byte, 0, padded)
	out = append(out, "EXTH"...)
	out = append(out, u32be(uint32(padded))...)
	out = append(out, u32be(uint32(len(records)))...)
	out = append(out, body...)
	for len(out) < padded {
		out = append(out, 0)
	}
	return out
}

// BuildRecord0 emits record 0: PalmDOC sub-header + MOBI header + EXTH +
// full title + 2 null pad bytes, padded to at least
// 4096 + title_offset + title_length bytes to match Amazon's DTP
// toolchain.
func BuildRecord0(p Record0Params) []byte {
	var exth []byte
	exthFlags := uint32(0)
	if len(p.Exth) > 0 {
		exth = BuildEXTH(p.Exth)
		exthFlags = 0x40
	}

	const mobiHeaderLen = 232 // header length declared at record0[20:24]
	out := make([]byte, 16+mobiHeaderLen)

	binary.BigEndian.PutUint16(out[0:2], p.Compression)
	binary.BigEndian.PutUint16(out[2:4], 0) // reserved
	binary.BigEndian.PutUint32(out[4:8], p.TextLength)
	binary.BigEndian.PutUint16(out[8:10], p.TextRecordCount)
	binary.BigEndian.PutUint16(out[10:12], p.TextRecordSize)
	binary.BigEndian.PutUint16(out[12:14], 0) // encryption = none
	binary.BigEndian.PutUint16(out[14:16], 0) // reserved

	copy(out[16:20], "MOBI")
	binary.BigEndian.PutUint32(out[20:24], mobiHeaderLen)
	binary.BigEndian.PutUint32(out[24:28], p.MobiType)
	binary.BigEndian.PutUint32(out[28:32], p.TextEncoding)
	binary.BigEndian.PutUint32(out[32:36], p.UID)
	binary.BigEndian.PutUint32(out[36:40], p.FormatVersion)

	putU32 := func(off int, v uint32) { binary.BigEndian.PutUint32(out[16+off:16+off+4], v) }
	putU32(88, uint32(len(p.Title)))
	putU32(108, p.FirstImageRecord)
	putU32(112, p.HuffRecordOffset)
	putU32(116, p.HuffRecordCount)
	putU32(128, exthFlags)
	putU32(164, valOrAbsent(p.SkeletonIndex))
	putU32(176, valOrAbsent(p.NCXIndex))
	putU32(180, valOrAbsent(p.ChunkIndex))
	putU32(184, valOrAbsent(p.OtherIndex))
	putU32(192, valOrAbsent(p.FDSTRecord))
	binary.BigEndian.PutUint16(out[16+226:16+228], p.ExtraDataFlags)

	out = append(out, exth...)

	titleOffset := uint32(len(out))
	binary.BigEndian.PutUint32(out[16+84:16+88], titleOffset)
	out = append(out, p.Title...)
	out = append(out, 0, 0)

	minLen := 4096 + int(titleOffset) + len(p.Title)
	for len(out) < minLen {
		out = append(out, 0)
	}
	return out
}

func valOrAbsent(v uint32) uint32 {
	if v == 0 {
		return noIndex
	}
	return v
}

func u32be(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
