package kf8

import (
	"bytes"
	"fmt"
	"sort"

	"bookforge/baseenc"
	"bookforge/bookerr"
)

const (
	placeholderPrefix = "kindle:pos:fid:"
	placeholderMid    = ":off:"
	placeholderLen    = 34
)

// AidEntry is one element's aid record built while scanning reassembled
// text: its sequence number (chunk/fragment index), its byte offset
// within that chunk, and its absolute offset in the combined text stream.
type AidEntry struct {
	Aid             string
	SequenceNum     int
	OffsetInChunk   int
	AbsoluteOffset  int
	ID              string // the element's own id="..." attribute, if any
}

// BuildAidMap scans decompressed text for `aid="XXXX"` attributes (nearly
// every block-level element carries one) and records each one's id
// attribute if present.
func BuildAidMap(text []byte, fragsBySeq map[int]Frag) map[string]AidEntry {
	out := make(map[string]AidEntry)
	idx := 0
	for {
		rel := bytes.Index(text[idx:], []byte(`aid="`))
		if rel < 0 {
			break
		}
		pos := idx + rel + len(`aid="`)
		end := bytes.IndexByte(text[pos:], '"')
		if end < 0 {
			break
		}
		aid := string(text[pos : pos+end])
		id := findIDAttrNear(text, idx+rel)
		out[aid] = AidEntry{Aid: aid, AbsoluteOffset: idx + rel, ID: id}
		idx = pos + end
	}
	return out
}

// findIDAttrNear looks for an id="..." attribute within the same start
// tag as the aid attribute found at aidPos.
func findIDAttrNear(text []byte, aidPos int) string {
	tagStart := bytes.LastIndexByte(text[:aidPos], '<')
	if tagStart < 0 {
		return ""
	}
	tagEnd := bytes.IndexByte(text[aidPos:], '>')
	if tagEnd < 0 {
		return ""
	}
	tag := text[tagStart : aidPos+tagEnd]
	// The leading space keeps the aid="..." attribute itself from matching.
	rel := bytes.Index(tag, []byte(` id="`))
	if rel < 0 {
		return ""
	}
	rest := tag[rel+len(` id="`):]
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return string(rest[:end])
}

// DecodePlaceholder parses a 34-byte `kindle:pos:fid:XXXX:off:YYYYYYYYYY`
// placeholder into its fid and offset components.
func DecodePlaceholder(placeholder string) (fid uint32, off uint32, err error) {
	if len(placeholder) != placeholderLen {
		return 0, 0, bookerr.New(bookerr.InvalidHeader, "kindle position placeholder has wrong length")
	}
	if placeholder[:len(placeholderPrefix)] != placeholderPrefix {
		return 0, 0, bookerr.New(bookerr.InvalidHeader, "kindle position placeholder missing prefix")
	}
	fidStr := placeholder[15:19]
	mid := placeholder[19:24]
	if mid != placeholderMid {
		return 0, 0, bookerr.New(bookerr.InvalidHeader, "kindle position placeholder missing :off: marker")
	}
	offStr := placeholder[24:34]
	fid64, err := baseenc.Decode(fidStr)
	if err != nil {
		return 0, 0, err
	}
	off64, err := baseenc.Decode(offStr)
	if err != nil {
		return 0, 0, err
	}
	return uint32(fid64), uint32(off64), nil
}

// EncodePlaceholder renders a 34-byte placeholder for (fid, off).
func EncodePlaceholder(fid, off uint32) string {
	return placeholderPrefix + baseenc.Encode(uint64(fid), 4) + placeholderMid + baseenc.Encode(uint64(off), 10)
}

// RewriteKindleRefs scans html for kindle:pos:fid placeholders and
// rewrites each to `partNNNN.html#id` using the fragment table and aid
// map(read direction).
func RewriteKindleRefs(html []byte, fragsBySeq map[int]Frag, aidMap map[string]AidEntry, fileNumberOf func(seq int) int) ([]byte, error) {
	out := make([]byte, 0, len(html))
	i := 0
	for {
		rel := bytes.Index(html[i:], []byte(placeholderPrefix))
		if rel < 0 {
			out = append(out, html[i:]...)
			break
		}
		start := i + rel
		if start+placeholderLen > len(html) {
			out = append(out, html[i:]...)
			break
		}
		placeholder := string(html[start : start+placeholderLen])
		fid, off, err := DecodePlaceholder(placeholder)
		out = append(out, html[i:start]...)
		if err != nil {
			out = append(out, html[start:start+placeholderLen]...)
			i = start + placeholderLen
			continue
		}
		frag, ok := fragsBySeq[int(fid)]
		if !ok {
			out = append(out, html[start:start+placeholderLen]...)
			i = start + placeholderLen
			continue
		}
		var id string
		best := -1
		for _, e := range aidMap {
			if e.SequenceNum != frag.SequenceNum {
				continue
			}
			if e.OffsetInChunk <= int(off) && e.OffsetInChunk > best {
				best = e.OffsetInChunk
				id = e.ID
				if id == "" {
					id = e.Aid
				}
			}
		}
		fileNum := fileNumberOf(frag.SequenceNum)
		replacement := fmt.Sprintf("%s#%s", PartName(fileNum), id)
		out = append(out, []byte(replacement)...)
		i = start + placeholderLen
	}
	return out, nil
}

// --- write direction (chunker inverse) ---

// PendingRef is a deferred placeholder written at writeOffset that must
// be patched once the aid map is known.
type PendingRef struct {
	WriteOffset int // absolute offset of the 34-byte slot in the flow stream
	TargetHref  string
}

// PatchPendingRefs overwrites each deferred placeholder's fid/off bytes
// in place using the now-known aid->position map, preserving the
// 34-byte slot so index tables built from byte positions stay correct.
func PatchPendingRefs(stream []byte, pending []PendingRef, hrefToAid map[string]AidEntry, seqOf map[string]int) {
	for _, p := range pending {
		e, ok := hrefToAid[p.TargetHref]
		if !ok {
			continue
		}
		fid := uint32(seqOf[e.Aid])
		off := uint32(e.OffsetInChunk)
		repl := EncodePlaceholder(fid, off)
		if p.WriteOffset+placeholderLen <= len(stream) {
			copy(stream[p.WriteOffset:p.WriteOffset+placeholderLen], repl)
		}
	}
}

// SortedAidEntries returns the aid map's entries ordered by absolute
// offset, useful for binary-searching filepos-style MOBI6 anchors.
func SortedAidEntries(aidMap map[string]AidEntry) []AidEntry {
	out := make([]AidEntry, 0, len(aidMap))
	for _, e := range aidMap {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AbsoluteOffset < out[j].AbsoluteOffset })
	return out
}

// ResolveFilepos resolves a MOBI6 `#fileposNNNN` byte offset to the
// nearest aid entry at or before that offset/§4.12; an offset that falls
// inside an element resolves to that element's aid, not only an exact match.
func ResolveFilepos(sorted []AidEntry, pos int) (AidEntry, bool) {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].AbsoluteOffset > pos })
	if i == 0 {
		return AidEntry{}, false
	}
	return sorted[i-1], true
}
