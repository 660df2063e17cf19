// Package kf8write serializes a book.Book into a pure KF8 (AZW3) file:
// PalmDB envelope, chunked/aid-tagged flow-0 text, SKEL/FRAG/NCX indices,
// and record 0's MOBI header + EXTH metadata block.
package kf8write

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"bookforge/book"
	"bookforge/bookerr"
	"bookforge/kf8"
	"bookforge/mobi"
	"bookforge/palmdb"
	"bookforge/palmdoc"
)

const textRecordSize = 4096

// linkMarker is a 34-byte sentinel substituted for cross-chapter href
// targets during chunking; its byte offsets in the final flow are patched
// with real kindle:pos placeholders once every chapter's aids are known
//.
var linkMarker = fmt.Sprintf("%-34s", "\x00KFXHREFPLACEHOLDER\x00")[:34]

// linkTarget is one deferred cross-chapter link's resolved fragment id,
// recorded in document order so it can be zipped back up with the marker
// occurrences found in the assembled stream.
type linkTarget struct {
	target string
}

// Write serializes b into a complete AZW3/KF8 file.
func Write(b *book.Book) ([]byte, error) {
	ch := kf8.NewChunker()

	var orderedLinks []linkTarget

	for i, item := range b.Spine {
		html, err := b.Chapter(item.ID)
		if err != nil {
			return nil, err
		}
		rewritten, links := rewriteCrossChapterHrefs(html, item.ID, b.Spine)
		orderedLinks = append(orderedLinks, links...)
		ch.AddChapter(i, rewritten)
	}

	var pending []kf8.PendingRef
	searchFrom := 0
	for _, link := range orderedLinks {
		idx := bytes.Index(ch.Stream[searchFrom:], []byte(linkMarker))
		if idx < 0 {
			continue
		}
		offset := searchFrom + idx
		pending = append(pending, kf8.PendingRef{WriteOffset: offset, TargetHref: link.target})
		searchFrom = offset + len(linkMarker)
	}

	aidMap := ch.BuildAidMapFromStream()
	seqOf := make(map[string]int, len(aidMap))
	for aid, e := range aidMap {
		seqOf[aid] = e.SequenceNum
	}
	hrefToAid := make(map[string]kf8.AidEntry, len(ch.IDToAid))
	for id, aid := range ch.IDToAid {
		if e, ok := aidMap[aid]; ok {
			hrefToAid[id] = e
		}
	}
	kf8.PatchPendingRefs(ch.Stream, pending, hrefToAid, seqOf)

	textRecords := chunkAndCompress(ch.Stream)

	fdst := buildFDST(len(ch.Stream))

	selectorCNCX, selectorOffsets := kf8.EncodeCNCX([]string{""})
	fragEntries := kf8.BuildFragIndexEntries(ch.Fragments, func(string) uint32 { return selectorOffsets[0] })
	fragIndexRec := kf8.EncodeIndex(fragEntries, kf8.FragTags)

	skelEntries := kf8.BuildSkelIndexEntries(ch.Skeletons)
	skelIndexRec := kf8.EncodeIndex(skelEntries, kf8.SkelTags)

	var ncxIndexRec, ncxCNCX []byte
	haveNCX := len(b.TOC) > 0
	if haveNCX {
		ncxEntries, titles := flattenTOC(b.TOC, b.Spine, hrefToAid)
		titleCNCX, titleOffsets := kf8.EncodeCNCX(titles)
		titleIdx := make(map[string]uint32, len(titles))
		for i, t := range titles {
			titleIdx[t] = titleOffsets[i]
		}
		entries := kf8.BuildNCXIndexEntries(ncxEntries, func(title string) uint32 { return titleIdx[title] })
		ncxIndexRec = kf8.EncodeIndex(entries, kf8.NCXTags)
		ncxCNCX = titleCNCX
	}

	records := [][]byte{nil} // record 0 placeholder, filled in below
	records = append(records, textRecords...)

	fdstIdx := len(records)
	records = append(records, fdst)

	skelIdx := len(records)
	records = append(records, skelIndexRec)

	fragIdx := len(records)
	records = append(records, fragIndexRec, selectorCNCX)

	var ncxIdx uint32
	if haveNCX {
		ncxIdx = uint32(len(records))
		records = append(records, ncxIndexRec, ncxCNCX)
	}

	imageRecords, err := buildImageRecords(b)
	if err != nil {
		return nil, err
	}
	firstImageRecord := 0
	if len(imageRecords) > 0 {
		firstImageRecord = len(records)
	}
	records = append(records, imageRecords...)

	exth := buildEXTH(b.Metadata)

	record0 := mobi.BuildRecord0(mobi.Record0Params{
		Compression:     mobi.CompressionPalmDoc,
		TextLength:      uint32(len(ch.Stream)),
		TextRecordCount: uint16(len(textRecords)),
		TextRecordSize:  textRecordSize,
		MobiType:        2,
		TextEncoding:    65001,
		UID:             0x4B465738, // "KFW8" as a stable synthetic UID
		FormatVersion:   8,
		FirstImageRecord: uint32(firstImageRecord),
		FDSTRecord:       uint32(fdstIdx),
		SkeletonIndex:    uint32(skelIdx),
		ChunkIndex:       uint32(fragIdx),
		NCXIndex:         ncxIdx,
		OtherIndex:       0,
		Exth:             exth,
		Title:            b.Metadata.Title,
	})
	records[0] = record0

	name := b.Metadata.Title
	if len(name) > 31 {
		name = name[:31]
	}

	out := palmdb.Write(palmdb.WriteParams{
		Name:       name,
		Type:       [4]byte{'B', 'O', 'O', 'K'},
		Creator:    [4]byte{'M', 'O', 'B', 'I'},
		UniqueSeed: uint32(len(records)),
		Records:    records,
	})
	return out, nil
}

// rewriteCrossChapterHrefs replaces href="otherID..." attribute values
// pointing at a different spine item with the deferred link marker,
// leaving same-chapter "#frag" anchors untouched since they remain valid
// once this chapter becomes its own part file.
func rewriteCrossChapterHrefs(html []byte, ownID string, spine []book.SpineItem) ([]byte, []linkTarget) {
	spineIDs := make(map[string]bool, len(spine))
	for _, s := range spine {
		spineIDs[s.ID] = true
	}

	var links []linkTarget
	var out bytes.Buffer
	i := 0
	for i < len(html) {
		rel := bytes.Index(html[i:], []byte(`href="`))
		if rel < 0 {
			out.Write(html[i:])
			break
		}
		start := i + rel + len(`href="`)
		out.Write(html[i : i+rel+len(`href="`)])
		end := bytes.IndexByte(html[start:], '"')
		if end < 0 {
			out.Write(html[start:])
			break
		}
		target := string(html[start : start+end])
		targetPath := target
		if hashIdx := bytes.IndexByte([]byte(target), '#'); hashIdx >= 0 {
			targetPath = target[:hashIdx]
		}
		if targetPath != "" && targetPath != ownID && spineIDs[targetPath] {
			frag := ""
			if hashIdx := indexByte(target, '#'); hashIdx >= 0 {
				frag = target[hashIdx+1:]
			}
			links = append(links, linkTarget{target: frag})
			out.WriteString(linkMarker)
		} else {
			out.WriteString(target)
		}
		i = start + end
	}
	return out.Bytes(), links
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func chunkAndCompress(stream []byte) [][]byte {
	var out [][]byte
	for off := 0; off < len(stream); off += textRecordSize {
		end := off + textRecordSize
		if end > len(stream) {
			end = len(stream)
		}
		out = append(out, palmdoc.Compress(stream[off:end]))
	}
	if len(out) == 0 {
		out = append(out, []byte{})
	}
	return out
}

// buildFDST emits a single-flow FDST record covering the whole text
// stream, since this writer does not split CSS/SVG into separate flows
//.
func buildFDST(textLen int) []byte {
	out := make([]byte, 12)
	copy(out[0:4], "FDST")
	binary.BigEndian.PutUint32(out[4:8], 12)
	binary.BigEndian.PutUint32(out[8:12], 1)
	out = append(out, make([]byte, 8)...)
	binary.BigEndian.PutUint32(out[12:16], 0)
	binary.BigEndian.PutUint32(out[16:20], uint32(textLen))
	return out
}

// flattenTOC walks b's TOC in document (preorder) order, resolving each
// node's href to a (fragment sequence, offset-in-fragment) position via
// the chunker's id->aid map's CHUNK/FRAG position encoding.
func flattenTOC(toc []*book.TOCNode, spine []book.SpineItem, hrefToAid map[string]kf8.AidEntry) ([]kf8.NCXEntry, []string) {
	fileNumberOf := make(map[string]int, len(spine))
	for i, s := range spine {
		fileNumberOf[s.ID] = i
	}

	var entries []kf8.NCXEntry
	var titles []string
	var walk func(nodes []*book.TOCNode, level, parent int)
	walk = func(nodes []*book.TOCNode, level, parent int) {
		for _, n := range nodes {
			idx := len(entries)
			targetPath, frag := splitHref(n.Href)
			fragIndex := fileNumberOf[targetPath]
			offset := 0
			if frag != "" {
				if e, ok := hrefToAid[frag]; ok {
					offset = e.OffsetInChunk
					fragIndex = e.SequenceNum
				}
			}
			entries = append(entries, kf8.NCXEntry{
				Title:        n.Title,
				Level:        level,
				FragIndex:    fragIndex,
				OffsetInFrag: offset,
				ParentIndex:  parent,
				PlayOrder:    n.PlayOrder,
			})
			titles = append(titles, n.Title)
			if len(n.Children) > 0 {
				walk(n.Children, level+1, idx)
			}
		}
	}
	walk(toc, 0, -1)
	return entries, titles
}

func splitHref(href string) (path, frag string) {
	for i := 0; i < len(href); i++ {
		if href[i] == '#' {
			return href[:i], href[i+1:]
		}
	}
	return href, ""
}

// buildImageRecords copies every book asset into raw PalmDB records in
// AssetPaths order.
func buildImageRecords(b *book.Book) (records [][]byte, err error) {
	for _, p := range b.AssetPaths {
		data, loadErr := b.Asset(p)
		if loadErr != nil {
			return nil, bookerr.Wrap(bookerr.MissingReference, "loading asset "+p, loadErr)
		}
		records = append(records, data)
	}
	return records, nil
}

// buildEXTH renders b's metadata into the EXTH records this writer
// understands.
func buildEXTH(m book.Metadata) []mobi.ExthRecord {
	var out []mobi.ExthRecord
	add := func(t uint32, v string) {
		if v != "" {
			out = append(out, mobi.ExthRecord{Type: t, Value: []byte(v)})
		}
	}
	for _, a := range m.Authors {
		add(mobi.ExthAuthor, a)
	}
	add(mobi.ExthPublisher, m.Publisher)
	add(mobi.ExthDescription, m.Description)
	for _, s := range m.Subjects {
		add(mobi.ExthSubject, s)
	}
	add(mobi.ExthDate, m.Date)
	add(mobi.ExthRights, m.Rights)
	add(mobi.ExthASIN, m.Identifier)
	add(mobi.ExthLanguage, m.Language)
	add(mobi.ExthUpdatedTitle, m.Title)
	return out
}
