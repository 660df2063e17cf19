package kf8

import "encoding/binary"

// indexHeaderLen is the fixed header size written for every INDX record
// this package emits, matching the 192-byte minimum ParseIndex requires
// on read.
const indexHeaderLen = 192

// EncodeIndex serializes entries into a single INDX record (header + TAGX
// block + entries) followed by its IDXT offset table/§4.7.
// Each skeleton/fragment/NCX index produced by the chunker is small enough
// to fit one record; the multi-record continuation scheme ParseIndex
// reads is a read-side accommodation for producers (e.g. Amazon's own
// toolchain) that split large tables, not a requirement this writer needs
// to reproduce.
func EncodeIndex(entries []IndexEntry, tags []TagDescriptor) []byte {
	out := make([]byte, indexHeaderLen)
	copy(out[0:4], "INDX")

	tagxStart := len(out)
	out = append(out, "TAGX"...)
	tagxLenPos := len(out)
	out = append(out, 0, 0, 0, 0) // tagxLen, patched below
	numControl := 0
	for _, t := range tags {
		if t.EOF == 0 {
			numControl++
		}
	}
	out = append(out, u32be(uint32(numControl))...)
	for _, t := range tags {
		out = append(out, t.Tag, t.NumValues, t.Bitmask, t.EOF)
	}
	tagxLen := len(out) - tagxStart
	copy(out[tagxLenPos:tagxLenPos+4], u32be(uint32(tagxLen)))

	entryOffsets := make([]int, len(entries))
	for i, e := range entries {
		entryOffsets[i] = len(out)
		out = append(out, byte(len(e.Name)))
		out = append(out, e.Name...)
		control, values := encodeEntryValues(e, tags, numControl)
		out = append(out, control...)
		out = append(out, values...)
	}

	idxtOffset := len(out)
	out = append(out, "IDXT"...)
	for _, off := range entryOffsets {
		out = append(out, byte(off>>8), byte(off))
	}
	if len(out)%2 != 0 {
		out = append(out, 0)
	}

	binary.BigEndian.PutUint32(out[4:8], indexHeaderLen)
	binary.BigEndian.PutUint32(out[8:12], 1) // record count: this header record only
	binary.BigEndian.PutUint32(out[20:24], uint32(idxtOffset))
	binary.BigEndian.PutUint32(out[24:28], uint32(len(entries)))

	return out
}

// encodeEntryValues builds an entry's control bytes and variable-width tag
// values, inverting decodeEntry's bitmask convention: a present tag's
// control byte equals its full bitmask, and (since every tag here carries
// exactly one value per presence) the value count is NumValues.
func encodeEntryValues(e IndexEntry, tags []TagDescriptor, numControl int) (control, values []byte) {
	control = make([]byte, 0, numControl)
	for _, t := range tags {
		if t.EOF != 0 {
			continue
		}
		if vals, ok := e.Values[t.Tag]; ok && len(vals) > 0 {
			control = append(control, t.Bitmask)
			for _, v := range vals {
				values = PutVarLen(values, v)
			}
		} else {
			control = append(control, 0)
		}
	}
	return control, values
}

func u32be(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// EncodeCNCX packs strings into CNCX record bytes and returns each
// string's byte offset. Offsets are assigned in the order strings
// are given; callers intern each distinct string once and reuse its
// offset everywhere it's referenced.
func EncodeCNCX(strings []string) (record []byte, offsets []uint32) {
	offsets = make([]uint32, len(strings))
	for i, s := range strings {
		offsets[i] = uint32(len(record))
		if len(s) > 255 {
			s = s[:255]
		}
		record = append(record, byte(len(s)))
		record = append(record, s...)
	}
	return record, offsets
}

// SkelTags is the TAGX descriptor set for a SKEL index.
var SkelTags = []TagDescriptor{
	{Tag: 1, NumValues: 1, Bitmask: 0x01},
	{Tag: 6, NumValues: 2, Bitmask: 0x02},
	{Tag: 0, NumValues: 0, Bitmask: 0, EOF: 1},
}

// FragTags is the TAGX descriptor set for a CHUNK/FRAG index.
var FragTags = []TagDescriptor{
	{Tag: 2, NumValues: 1, Bitmask: 0x01},
	{Tag: 3, NumValues: 1, Bitmask: 0x02},
	{Tag: 4, NumValues: 1, Bitmask: 0x04},
	{Tag: 6, NumValues: 2, Bitmask: 0x08},
	{Tag: 0, NumValues: 0, Bitmask: 0, EOF: 1},
}

// NCXTags is the TAGX descriptor set for an NCX index.
var NCXTags = []TagDescriptor{
	{Tag: 1, NumValues: 1, Bitmask: 0x01},
	{Tag: 2, NumValues: 1, Bitmask: 0x02},
	{Tag: 3, NumValues: 1, Bitmask: 0x04},
	{Tag: 4, NumValues: 1, Bitmask: 0x08},
	{Tag: 6, NumValues: 2, Bitmask: 0x10},
	{Tag: 21, NumValues: 1, Bitmask: 0x20},
	{Tag: 0, NumValues: 0, Bitmask: 0, EOF: 1},
}

// BuildSkelIndexEntries converts Skel entries into index-writer form.
// Entry names are the skeleton's part name, matching the convention
// ParseSkelIndex's counterpart (file number = entry order) expects.
func BuildSkelIndexEntries(skels []Skel) []IndexEntry {
	out := make([]IndexEntry, 0, len(skels))
	for _, s := range skels {
		out = append(out, IndexEntry{
			Name: PartName(s.FileNumber),
			Values: map[byte][]uint32{
				1: {uint32(s.FragmentCount)},
				6: {uint32(s.Start), uint32(s.Length)},
			},
		})
	}
	return out
}

// BuildFragIndexEntries converts Frag entries into index-writer form. The
// entry name is the decimal insert position.
func BuildFragIndexEntries(frags []Frag, selectorOffset func(selector string) uint32) []IndexEntry {
	out := make([]IndexEntry, 0, len(frags))
	for _, f := range frags {
		out = append(out, IndexEntry{
			Name: itoa(f.InsertPos),
			Values: map[byte][]uint32{
				2: {selectorOffset(f.Selector)},
				3: {uint32(f.FileNumber)},
				4: {uint32(f.SequenceNum)},
				6: {uint32(f.Start), uint32(f.Length)},
			},
		})
	}
	return out
}

// BuildNCXIndexEntries converts NCXEntry values into index-writer form.
func BuildNCXIndexEntries(entries []NCXEntry, titleOffset func(title string) uint32) []IndexEntry {
	out := make([]IndexEntry, 0, len(entries))
	for i, n := range entries {
		values := map[byte][]uint32{
			1: {uint32(n.Position)},
			2: {uint32(n.Length)},
			3: {titleOffset(n.Title)},
			4: {uint32(n.Level)},
			6: {uint32(n.FragIndex), uint32(n.OffsetInFrag)},
		}
		if n.ParentIndex >= 0 {
			values[21] = []uint32{uint32(n.ParentIndex)}
		}
		out = append(out, IndexEntry{Name: itoa(i), Values: values})
	}
	return out
}
