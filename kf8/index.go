package kf8

import (
	"encoding/binary"

	"bookforge/bookerr"
)

// TagDescriptor is one TAGX tag entry: (tag, num_values, bitmask, eof).
type TagDescriptor struct {
	Tag       byte
	NumValues byte
	Bitmask   byte
	EOF       byte
}

// IndexEntry is one decoded INDX entry: its name and its decoded tag
// values, keyed by tag number. A tag with NumValues>1 yields a []uint32.
type IndexEntry struct {
	Name   string
	Values map[byte][]uint32
}

// Index is a fully parsed INDX record group (header record + any
// continuation records) plus its CNCX string table.
type Index struct {
	Entries []IndexEntry
	Tags    []TagDescriptor
	cncx    map[uint32]string
}

// String dereferences a CNCX offset into its string: "a
// separate CNCX record stream provides a u32 offset -> string map".
func (idx *Index) String(cncxOffset uint32) (string, bool) {
	s, ok := idx.cncx[cncxOffset]
	return s, ok
}

// ParseCNCX builds the offset->string map from one or more CNCX records
// concatenated in record order. Each entry is a length-prefixed string:
// one byte length, then that many UTF-8 bytes, at the offset named by
// index tags.
func ParseCNCX(records [][]byte) map[uint32]string {
	out := make(map[uint32]string)
	var base uint32
	for _, rec := range records {
		pos := 0
		for pos < len(rec) {
			l := int(rec[pos])
			pos++
			if pos+l > len(rec) {
				break
			}
			out[base+uint32(pos-1)] = string(rec[pos : pos+l])
			pos += l
		}
		base += uint32(len(rec))
	}
	return out
}

// indxHeader is the fixed portion of an INDX record.
type indxHeader struct {
	indexType   uint32
	idxtOffset  uint32
	numRecords  uint32
	entryCount  uint32
	ordt        uint32
	ligt        uint32
	numEntries  uint32
}

// ParseIndex parses a complete index: the first record's
// header + its TAGX block if present, followed by this and any
// continuation records' IDXT-addressed entries.
func ParseIndex(records [][]byte, cncx map[uint32]string) (*Index, error) {
	if len(records) == 0 {
		return nil, bookerr.New(bookerr.InvalidHeader, "INDX record group is empty")
	}
	first := records[0]
	if len(first) < 4 || string(first[0:4]) != "INDX" {
		return nil, bookerr.New(bookerr.InvalidHeader, "missing INDX magic")
	}
	if len(first) < 192 {
		return nil, bookerr.New(bookerr.InvalidHeader, "INDX header too short")
	}
	hdrLen := binary.BigEndian.Uint32(first[4:8])
	idxtOffset := binary.BigEndian.Uint32(first[20:24])
	numEntries := binary.BigEndian.Uint32(first[24:28])

	idx := &Index{cncx: cncx}

	// TAGX block, if present, sits right after the fixed header.
	tagxOffset := int(hdrLen)
	if tagxOffset+12 <= len(first) && string(first[tagxOffset:tagxOffset+4]) == "TAGX" {
		tagxLen := binary.BigEndian.Uint32(first[tagxOffset+4 : tagxOffset+8])
		numControlBytes := binary.BigEndian.Uint32(first[tagxOffset+8 : tagxOffset+12])
		_ = numControlBytes
		pos := tagxOffset + 12
		end := tagxOffset + int(tagxLen)
		for pos+4 <= end && pos+4 <= len(first) {
			idx.Tags = append(idx.Tags, TagDescriptor{
				Tag:       first[pos],
				NumValues: first[pos+1],
				Bitmask:   first[pos+2],
				EOF:       first[pos+3],
			})
			pos += 4
		}
	}

	for recIdx, rec := range records {
		var base int
		if recIdx == 0 {
			base = int(idxtOffset)
		} else {
			if len(rec) < 12 {
				continue
			}
			base = int(binary.BigEndian.Uint32(rec[8:12]))
		}
		entries, err := parseIDXT(rec, base, idx.Tags)
		if err != nil {
			return nil, err
		}
		idx.Entries = append(idx.Entries, entries...)
	}
	if uint32(len(idx.Entries)) > numEntries && numEntries > 0 {
		idx.Entries = idx.Entries[:numEntries]
	}
	return idx, nil
}

// parseIDXT reads the IDXT offset table at base and decodes each entry it
// points to using the TAGX-declared tag descriptors.
func parseIDXT(rec []byte, base int, tags []TagDescriptor) ([]IndexEntry, error) {
	if base+4 > len(rec) || string(rec[base:base+4]) != "IDXT" {
		return nil, bookerr.New(bookerr.InvalidHeader, "missing IDXT magic")
	}
	pos := base + 4
	var offsets []int
	for pos+2 <= len(rec) {
		off := int(binary.BigEndian.Uint16(rec[pos : pos+2]))
		if off == 0 || off >= base {
			// Offsets beyond or at IDXT's own start mark the end of
			// the table (padding/garbage past the last valid entry).
			if off >= base {
				break
			}
		}
		offsets = append(offsets, off)
		pos += 2
	}

	var entries []IndexEntry
	for i, off := range offsets {
		end := base
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if off >= len(rec) || end > len(rec) || end < off {
			continue
		}
		entry, err := decodeEntry(rec[off:end], tags)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeEntry(data []byte, tags []TagDescriptor) (IndexEntry, error) {
	if len(data) == 0 {
		return IndexEntry{}, bookerr.New(bookerr.InvalidHeader, "empty index entry")
	}
	nameLen := int(data[0])
	if 1+nameLen > len(data) {
		return IndexEntry{}, bookerr.New(bookerr.InvalidHeader, "index entry name length out of range")
	}
	name := string(data[1 : 1+nameLen])
	pos := 1 + nameLen

	numControlBytes := 0
	for _, t := range tags {
		if t.EOF == 0 {
			numControlBytes++
		}
	}
	if pos+numControlBytes > len(data) {
		numControlBytes = len(data) - pos
	}
	control := data[pos : pos+numControlBytes]
	pos += numControlBytes

	values := make(map[byte][]uint32)
	ci := 0
	for _, t := range tags {
		if t.EOF != 0 {
			continue
		}
		if ci >= len(control) {
			break
		}
		cb := control[ci]
		ci++
		masked := cb & t.Bitmask
		if masked == 0 {
			continue
		}
		count := 0
		mask := t.Bitmask
		// count set bits in mask that correspond to masked value != 0;
		// when mask spans multiple bits, the value is the shifted
		// field; treat a nonzero field as "present" and its shifted
		// value as the number of varint values to read: num_values
		// declares how many varints follow per presence.
		shift := 0
		for mask != 0 && mask&1 == 0 {
			mask >>= 1
			shift++
		}
		count = int(masked>>uint(shift)) * int(t.NumValues)
		if count == 0 {
			count = int(t.NumValues)
		}
		var vals []uint32
		for k := 0; k < count && pos < len(data); k++ {
			v, n := GetVarLen(data, pos)
			vals = append(vals, v)
			pos += n
		}
		values[t.Tag] = vals
	}
	return IndexEntry{Name: name, Values: values}, nil
}
