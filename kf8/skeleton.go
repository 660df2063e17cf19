package kf8

import (
	"encoding/binary"

	"bookforge/bookerr"
)

// Skel is one SKEL index entry: a skeleton file with its
// fragment count and its (start, length) range in flow 0.
type Skel struct {
	FileNumber    int
	FragmentCount int
	Start         int
	Length        int
}

// Frag is one CHUNK/FRAG index entry: insert position (decoded
// from the entry name), selector, file number, sequence number, and its
// (start, length) range in flow 0.
type Frag struct {
	InsertPos    int
	Selector     string
	FileNumber   int
	SequenceNum  int
	Start        int
	Length       int
}

// NCXEntry is one TOC entry decoded from the NCX index.
type NCXEntry struct {
	Position     int
	Length       int
	Title        string
	Level        int
	FragIndex    int
	OffsetInFrag int
	ParentIndex  int
	PlayOrder    int
}

func firstVal(vals []uint32) int {
	if len(vals) == 0 {
		return 0
	}
	return int(vals[0])
}

// ParseSkelIndex decodes a SKEL index's entries.
func ParseSkelIndex(idx *Index) []Skel {
	out := make([]Skel, 0, len(idx.Entries))
	for i, e := range idx.Entries {
		s := Skel{FileNumber: i}
		if v, ok := e.Values[1]; ok {
			s.FragmentCount = firstVal(v)
		}
		if v, ok := e.Values[6]; ok && len(v) >= 2 {
			s.Start = int(v[0])
			s.Length = int(v[1])
		}
		out = append(out, s)
	}
	return out
}

// ParseFragIndex decodes a CHUNK/FRAG index's entries. The entry name is
// the decimal insert position.
func ParseFragIndex(idx *Index) []Frag {
	out := make([]Frag, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		f := Frag{InsertPos: atoiSafe(e.Name)}
		if v, ok := e.Values[2]; ok {
			if s, found := idx.String(uint32(firstVal(v))); found {
				f.Selector = s
			}
		}
		if v, ok := e.Values[3]; ok {
			f.FileNumber = firstVal(v)
		}
		if v, ok := e.Values[4]; ok {
			f.SequenceNum = firstVal(v)
		}
		if v, ok := e.Values[6]; ok && len(v) >= 2 {
			f.Start = int(v[0])
			f.Length = int(v[1])
		}
		out = append(out, f)
	}
	return out
}

// ParseNCXIndex decodes an NCX index's entries into TOC entries.
// PlayOrder is the entry's position in the index; the index carries no
// separate play-order tag.
func ParseNCXIndex(idx *Index) []NCXEntry {
	out := make([]NCXEntry, 0, len(idx.Entries))
	for i, e := range idx.Entries {
		n := NCXEntry{PlayOrder: i}
		if v, ok := e.Values[1]; ok {
			n.Position = firstVal(v)
		}
		if v, ok := e.Values[2]; ok {
			n.Length = firstVal(v)
		}
		if v, ok := e.Values[3]; ok {
			if s, found := idx.String(uint32(firstVal(v))); found {
				n.Title = s
			}
		}
		if v, ok := e.Values[4]; ok {
			n.Level = firstVal(v)
		}
		if v, ok := e.Values[6]; ok && len(v) >= 2 {
			n.FragIndex = int(v[0])
			n.OffsetInFrag = int(v[1])
		}
		if v, ok := e.Values[21]; ok {
			n.ParentIndex = firstVal(v)
		} else {
			n.ParentIndex = -1
		}
		out = append(out, n)
	}
	return out
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return n
		}
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// ParseFDST decodes the Flow Descriptor Table: N flow byte-ranges in the
// decompressed text stream. Flow 0 is XHTML; flows 1+ are CSS
// or SVG.
func ParseFDST(rec []byte) ([][2]int, error) {
	if len(rec) < 12 || string(rec[0:4]) != "FDST" {
		return nil, bookerr.New(bookerr.InvalidHeader, "missing FDST magic")
	}
	numEntries := binary.BigEndian.Uint32(rec[8:12])
	out := make([][2]int, 0, numEntries)
	pos := 12
	for i := uint32(0); i < numEntries; i++ {
		if pos+8 > len(rec) {
			return nil, bookerr.New(bookerr.InvalidHeader, "FDST entry out of range")
		}
		start := binary.BigEndian.Uint32(rec[pos : pos+4])
		end := binary.BigEndian.Uint32(rec[pos+4 : pos+8])
		out = append(out, [2]int{int(start), int(end)})
		pos += 8
	}
	return out, nil
}

// ChapterHTML is one reassembled KF8 chapter.
type ChapterHTML struct {
	FileNumber int
	Name       string
	HTML       []byte
	// AidOffsets maps byte offset within HTML to the aid found there.
	// Reassemble leaves it nil.
	AidOffsets map[int]string
}

// Reassemble splices fragments into skeletons: for each
// skeleton, copy its byte range out of flow0 and, in fragment-table
// order, splice each of its fragments at the fragment's declared insert
// position (cumulative across already-spliced fragments of the SAME
// skeleton, per the spec's mandated per-skeleton interpretation of
// "cumulative" — see DESIGN.md open-question decision).
func Reassemble(flow0 []byte, skels []Skel, frags []Frag) ([]ChapterHTML, error) {
	fragsBySkel := make(map[int][]Frag)
	for _, f := range frags {
		fragsBySkel[f.FileNumber] = append(fragsBySkel[f.FileNumber], f)
	}

	chapters := make([]ChapterHTML, 0, len(skels))
	for _, s := range skels {
		if s.Start < 0 || s.Start+s.Length > len(flow0) {
			return nil, bookerr.New(bookerr.InvalidContainer, "SKEL entry range out of bounds")
		}
		base := append([]byte{}, flow0[s.Start:s.Start+s.Length]...)

		ownFrags := fragsBySkel[s.FileNumber]
		out := base
		for _, f := range ownFrags {
			// Out-of-range insert position: clamp rather than fail; the
			// input is trusted.
			pos := f.InsertPos
			if pos < 0 {
				pos = 0
			}
			if pos > len(out) {
				pos = len(out)
			}
			if f.Start >= 0 && f.Start+f.Length <= len(flow0) {
				spliced := make([]byte, 0, len(out)+f.Length)
				spliced = append(spliced, out[:pos]...)
				spliced = append(spliced, flow0[f.Start:f.Start+f.Length]...)
				out = append(spliced, out[pos:]...)
			}
		}

		chapters = append(chapters, ChapterHTML{
			FileNumber: s.FileNumber,
			Name:       PartName(s.FileNumber),
			HTML:       out,
		})
	}
	return chapters, nil
}

// PartName formats a chapter file number as "partNNNN.html".
func PartName(n int) string {
	digits := "0000"
	s := itoa(n)
	if len(s) < 4 {
		s = digits[:4-len(s)] + s
	}
	return "part" + s + ".html"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
