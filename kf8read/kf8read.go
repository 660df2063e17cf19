// Package kf8read reconstructs a book.Book from a legacy MOBI6, pure KF8
// (AZW3), or combo MOBI6+KF8 file.
package kf8read

import (
	"encoding/binary"
	"fmt"
	"strings"

	"bookforge/bookerr"
	"bookforge/book"
	"bookforge/kf8"
	"bookforge/mobi"
	"bookforge/mobihuff"
	"bookforge/palmdb"
	"bookforge/palmdoc"
)

// part holds one record-0 header plus the record range it owns, used to
// treat the MOBI6 and KF8 halves of a combo file uniformly.
type part struct {
	hdr        *mobi.Header
	firstRec   int // index of this part's record 0
	textStart  int // index of the first text record
	lastRec    int // index one past the last record belonging to this part (exclusive)
}

// Read parses src and reconstructs a format-agnostic book.Book.
func Read(src palmdb.ByteSource) (*book.Book, error) {
	info, err := palmdb.Parse(src)
	if err != nil {
		return nil, err
	}
	readRec := func(idx int) ([]byte, error) {
		if idx < 0 || idx >= info.RecordCount() {
			return nil, bookerr.New(bookerr.InvalidContainer, "record index out of range")
		}
		return info.ReadRecord(src, idx)
	}

	record0, err := readRec(0)
	if err != nil {
		return nil, bookerr.Wrap(bookerr.InputIo, "reading record 0", err)
	}
	hdr, err := mobi.ParseHeader(record0)
	if err != nil {
		return nil, err
	}

	kind, boundary, err := mobi.Detect(hdr, readRec)
	if err != nil {
		return nil, err
	}

	switch kind {
	case mobi.FormatKF8Pure:
		p := part{hdr: hdr, firstRec: 0, textStart: 1, lastRec: info.RecordCount()}
		return readKF8Part(info, readRec, p)
	case mobi.FormatKF8Combo:
		kf8Record0, err := readRec(boundary)
		if err != nil {
			return nil, bookerr.Wrap(bookerr.InputIo, "reading KF8 boundary record", err)
		}
		kf8Hdr, err := mobi.ParseHeader(kf8Record0)
		if err != nil {
			return nil, err
		}
		p := part{hdr: kf8Hdr, firstRec: boundary, textStart: boundary + 1, lastRec: info.RecordCount()}
		return readKF8Part(info, readRec, p)
	default:
		p := part{hdr: hdr, firstRec: 0, textStart: 1, lastRec: info.RecordCount()}
		return readMobi6Part(info, readRec, p)
	}
}

// decompressText concatenates and decompresses a part's text records,
// stripping trailing multibyte/flags data.
func decompressText(readRec func(int) ([]byte, error), h *mobi.Header, textStart int) ([]byte, error) {
	var huffDec *mobihuff.Decoder
	if h.Compression == mobi.CompressionHuff {
		huffRec, err := readRec(int(h.HuffRecordOffset))
		if err != nil {
			return nil, bookerr.Wrap(bookerr.InputIo, "reading HUFF record", err)
		}
		var cdicRecs [][]byte
		for i := 1; i < int(h.HuffRecordCount); i++ {
			rec, err := readRec(int(h.HuffRecordOffset) + i)
			if err != nil {
				return nil, bookerr.Wrap(bookerr.InputIo, "reading CDIC record", err)
			}
			cdicRecs = append(cdicRecs, rec)
		}
		d, err := mobihuff.NewDecoder(huffRec, cdicRecs)
		if err != nil {
			return nil, err
		}
		huffDec = d
	}

	var out []byte
	for i := 0; i < int(h.TextRecordCount); i++ {
		rec, err := readRec(textStart + i)
		if err != nil {
			return nil, bookerr.Wrap(bookerr.InputIo, "reading text record", err)
		}
		var decoded []byte
		switch h.Compression {
		case mobi.CompressionNone:
			decoded = rec
		case mobi.CompressionPalmDoc:
			decoded, err = palmdoc.Decompress(rec)
			if err != nil {
				return nil, err
			}
		case mobi.CompressionHuff:
			decoded, err = huffDec.Decompress(rec)
			if err != nil {
				return nil, err
			}
		default:
			return nil, bookerr.New(bookerr.UnsupportedFeature, "unknown text compression scheme")
		}
		decoded = mobi.StripTrailingData(decoded, h.ExtraDataFlags)
		out = append(out, decoded...)
	}
	return out, nil
}

func u32At(b []byte, off int) uint32 {
	if off+4 > len(b) {
		return 0
	}
	return uint32(b[off])<<24 | uint32(b[off+1])<<16 | uint32(b[off+2])<<8 | uint32(b[off+3])
}

// readKF8Part reconstructs the KF8/AZW3 half of a file.
func readKF8Part(info *palmdb.Info, readRec func(int) ([]byte, error), p part) (*book.Book, error) {
	h := p.hdr
	text, err := decompressText(readRec, h, p.textStart)
	if err != nil {
		return nil, err
	}

	var flows [][]byte
	if h.FDSTRecord != 0 && h.FDSTRecord != 0xFFFFFFFF {
		fdstRec, err := readRec(int(h.FDSTRecord))
		if err != nil {
			return nil, bookerr.Wrap(bookerr.InputIo, "reading FDST record", err)
		}
		ranges, err := kf8.ParseFDST(fdstRec)
		if err != nil {
			return nil, err
		}
		for _, r := range ranges {
			if r[0] >= 0 && r[1] <= len(text) && r[1] >= r[0] {
				flows = append(flows, text[r[0]:r[1]])
			}
		}
	}
	flow0 := text
	if len(flows) > 0 {
		flow0 = flows[0]
	}

	skelRecs, err := readIndexAllRecords(readRec, int(h.SkeletonIndex))
	if err != nil {
		return nil, err
	}
	fragRecs, err := readIndexAllRecords(readRec, int(h.ChunkIndex))
	if err != nil {
		return nil, err
	}
	ncxRecs, err := readIndexAllRecords(readRec, int(h.NCXIndex))
	if err != nil {
		return nil, err
	}

	cncx := kf8.ParseCNCX(nil)
	if len(ncxRecs) > 0 {
		cncxRecords, err := readCNCXRecords(readRec, int(h.NCXIndex))
		if err == nil {
			cncx = kf8.ParseCNCX(cncxRecords)
		}
	}

	var skels []kf8.Skel
	var frags []kf8.Frag
	var ncxEntries []kf8.NCXEntry

	if len(skelRecs) > 0 {
		idx, err := kf8.ParseIndex(skelRecs, cncx)
		if err != nil {
			return nil, err
		}
		skels = kf8.ParseSkelIndex(idx)
	}
	if len(fragRecs) > 0 {
		idx, err := kf8.ParseIndex(fragRecs, cncx)
		if err != nil {
			return nil, err
		}
		frags = kf8.ParseFragIndex(idx)
	}
	if len(ncxRecs) > 0 {
		idx, err := kf8.ParseIndex(ncxRecs, cncx)
		if err != nil {
			return nil, err
		}
		ncxEntries = kf8.ParseNCXIndex(idx)
	}

	var chapters []kf8.ChapterHTML
	if len(skels) > 0 {
		chapters, err = kf8.Reassemble(flow0, skels, frags)
		if err != nil {
			return nil, err
		}
	} else {
		chapters = []kf8.ChapterHTML{{FileNumber: 0, Name: kf8.PartName(0), HTML: flow0}}
	}

	fragsBySeq := make(map[int]kf8.Frag)
	for _, f := range frags {
		fragsBySeq[f.SequenceNum] = f
	}
	fileNumberOf := func(seq int) int {
		if f, ok := fragsBySeq[seq]; ok {
			return f.FileNumber
		}
		return seq
	}

	globalAidMap := make(map[string]kf8.AidEntry)
	for _, ch := range chapters {
		local := kf8.BuildAidMap(ch.HTML, nil)
		for aid, e := range local {
			e.SequenceNum = ch.FileNumber
			globalAidMap[aid] = e
		}
	}

	spine := make([]book.SpineItem, 0, len(chapters))
	chapterBytes := make(map[string][]byte, len(chapters))
	for _, ch := range chapters {
		rewritten, err := kf8.RewriteKindleRefs(ch.HTML, fragsBySeq, globalAidMap, fileNumberOf)
		if err != nil {
			return nil, err
		}
		id := ch.Name
		chapterBytes[id] = rewritten
		spine = append(spine, book.SpineItem{ID: id, SizeEstimate: len(rewritten)})
	}

	flow0AidMap := kf8.BuildAidMap(flow0, nil)
	sortedFlow0Aids := kf8.SortedAidEntries(flow0AidMap)

	toc := buildTOC(ncxEntries, skels, frags, sortedFlow0Aids, fileNumberOf)

	assetPaths, assetLoader := buildAssets(readRec, int(h.FirstImageRecord), info.RecordCount())

	meta := extractMetadata(h, info.Name)
	if off, ok := h.Find(mobi.ExthCoverOffset); ok && len(off) >= 4 {
		idx := binary.BigEndian.Uint32(off)
		name := fmt.Sprintf("resource-%05d.jpg", idx+1)
		meta.CoverHref = name
	}

	loadChapter := func(id string) ([]byte, error) {
		if b, ok := chapterBytes[id]; ok {
			return b, nil
		}
		return nil, bookerr.New(bookerr.MissingReference, "unknown chapter id "+id)
	}

	landmarks := []book.Landmark{}
	if meta.CoverHref != "" {
		landmarks = append(landmarks, book.Landmark{Kind: book.LandmarkCover, Href: meta.CoverHref})
	}
	if len(toc) > 0 {
		landmarks = append(landmarks, book.Landmark{Kind: book.LandmarkTOC, Href: spine[0].ID})
	}

	return book.New(meta, spine, toc, landmarks, assetPaths, loadChapter, assetLoader), nil
}

// readMobi6Part reconstructs a legacy MOBI6 book: a single undivided text
// flow. No TOC is recovered (buildMobi6TOC returns none), and no
// landmark other than the cover is set.
func readMobi6Part(info *palmdb.Info, readRec func(int) ([]byte, error), p part) (*book.Book, error) {
	h := p.hdr
	text, err := decompressText(readRec, h, p.textStart)
	if err != nil {
		return nil, err
	}

	const id = "content.html"
	spine := []book.SpineItem{{ID: id, SizeEstimate: len(text)}}

	aidMap := kf8.BuildAidMap(text, nil)
	sorted := kf8.SortedAidEntries(aidMap)
	toc := buildMobi6TOC(text, sorted)

	assetPaths, assetLoader := buildAssets(readRec, int(h.FirstImageRecord), info.RecordCount())
	meta := extractMetadata(h, info.Name)

	loadChapter := func(reqID string) ([]byte, error) {
		if reqID != id {
			return nil, bookerr.New(bookerr.MissingReference, "unknown chapter id "+reqID)
		}
		return text, nil
	}

	var landmarks []book.Landmark
	if meta.CoverHref != "" {
		landmarks = append(landmarks, book.Landmark{Kind: book.LandmarkCover, Href: meta.CoverHref})
	}

	return book.New(meta, spine, toc, landmarks, assetPaths, loadChapter, assetLoader), nil
}

// buildMobi6TOC is a best-effort TOC recovery for legacy MOBI6 files that
// carry no NCX index: it has nothing structural to walk, so it returns no
// entries. Readers relying on in-text <a name> anchors resolve them via
// kf8.ResolveFilepos against the returned spine item directly.
func buildMobi6TOC(text []byte, sorted []kf8.AidEntry) []*book.TOCNode {
	_ = text
	_ = sorted
	return nil
}

func buildTOC(entries []kf8.NCXEntry, skels []kf8.Skel, frags []kf8.Frag, sortedFlow0Aids []kf8.AidEntry, fileNumberOf func(int) int) []*book.TOCNode {
	if len(entries) == 0 {
		return nil
	}
	nodes := make([]*book.TOCNode, len(entries))
	for i, e := range entries {
		absPos := fragAbsolutePos(frags, e.FragIndex, e.OffsetInFrag)
		href := tocHref(absPos, skels, frags, sortedFlow0Aids, fileNumberOf)
		nodes[i] = &book.TOCNode{Title: e.Title, Href: href, PlayOrder: e.PlayOrder}
	}
	var roots []*book.TOCNode
	for i, e := range entries {
		if e.ParentIndex >= 0 && e.ParentIndex < len(nodes) {
			parent := nodes[e.ParentIndex]
			parent.Children = append(parent.Children, nodes[i])
		} else {
			roots = append(roots, nodes[i])
		}
	}
	return roots
}

func fragAbsolutePos(frags []kf8.Frag, fragIndex, offsetInFrag int) int {
	for _, f := range frags {
		if f.SequenceNum == fragIndex {
			return f.Start + offsetInFrag
		}
	}
	return offsetInFrag
}

func tocHref(absPos int, skels []kf8.Skel, frags []kf8.Frag, sortedFlow0Aids []kf8.AidEntry, fileNumberOf func(int) int) string {
	fileNum := 0
	for _, s := range skels {
		if absPos >= s.Start && absPos < s.Start+s.Length {
			fileNum = s.FileNumber
			break
		}
	}
	anchor, ok := kf8.ResolveFilepos(sortedFlow0Aids, absPos)
	if !ok {
		return kf8.PartName(fileNum)
	}
	id := anchor.ID
	if id == "" {
		id = anchor.Aid
	}
	return fmt.Sprintf("%s#%s", kf8.PartName(fileNum), id)
}

// readIndexAllRecords reads an index's full record group starting at
// recIdx. The header declares the number of continuation records at
// offset 8 (record count), matching kf8.ParseIndex's expectations.
func readIndexAllRecords(readRec func(int) ([]byte, error), recIdx int) ([][]byte, error) {
	if recIdx <= 0 || recIdx == 0xFFFFFFFF {
		return nil, nil
	}
	first, err := readRec(recIdx)
	if err != nil {
		return nil, bookerr.Wrap(bookerr.InputIo, "reading index header record", err)
	}
	if len(first) < 8 || string(first[0:4]) != "INDX" {
		return nil, bookerr.New(bookerr.InvalidHeader, "missing INDX magic")
	}
	numRecords := int(u32At(first, 8))
	records := [][]byte{first}
	for i := 1; i < numRecords; i++ {
		rec, err := readRec(recIdx + i)
		if err != nil {
			break
		}
		records = append(records, rec)
	}
	return records, nil
}

// readCNCXRecords locates the CNCX records that immediately follow an
// index's own records.
func readCNCXRecords(readRec func(int) ([]byte, error), ncxIndexRec int) ([][]byte, error) {
	first, err := readRec(ncxIndexRec)
	if err != nil {
		return nil, err
	}
	numRecords := int(u32At(first, 8))
	cncxStart := ncxIndexRec + numRecords
	var out [][]byte
	for i := 0; ; i++ {
		rec, err := readRec(cncxStart + i)
		if err != nil || len(rec) < 4 || string(rec[0:4]) == "INDX" {
			break
		}
		out = append(out, rec)
	}
	return out, nil
}

// buildAssets enumerates the image records following firstImageRecord up
// to the end of the record stream, exposing each as "resource-NNNNN.jpg"
//.
func buildAssets(readRec func(int) ([]byte, error), firstImageRecord, recordCount int) ([]string, book.AssetLoader) {
	if firstImageRecord <= 0 {
		return nil, func(string) ([]byte, error) {
			return nil, bookerr.New(bookerr.MissingReference, "no image records in this file")
		}
	}
	var paths []string
	offsetOf := make(map[string]int)
	for i := 0; firstImageRecord+i < recordCount; i++ {
		name := fmt.Sprintf("resource-%05d.jpg", i+1)
		paths = append(paths, name)
		offsetOf[name] = firstImageRecord + i
	}
	loader := func(path string) ([]byte, error) {
		idx, ok := offsetOf[path]
		if !ok {
			return nil, bookerr.New(bookerr.MissingReference, "unknown asset path "+path)
		}
		return readRec(idx)
	}
	return paths, loader
}

func extractMetadata(h *mobi.Header, pdbName string) book.Metadata {
	m := book.Metadata{
		Title: h.TitleOrDefault(pdbName),
	}
	if v, ok := h.Find(mobi.ExthAuthor); ok {
		m.Authors = splitMulti(string(v))
	}
	if v, ok := h.Find(mobi.ExthPublisher); ok {
		m.Publisher = string(v)
	}
	if v, ok := h.Find(mobi.ExthDescription); ok {
		m.Description = string(v)
	}
	if v, ok := h.Find(mobi.ExthSubject); ok {
		m.Subjects = splitMulti(string(v))
	}
	if v, ok := h.Find(mobi.ExthDate); ok {
		m.Date = string(v)
	}
	if v, ok := h.Find(mobi.ExthRights); ok {
		m.Rights = string(v)
	}
	if v, ok := h.Find(mobi.ExthASIN); ok {
		m.Identifier = string(v)
	} else {
		m.Identifier = fmt.Sprintf("urn:mobi:%08x", h.UID)
	}
	if v, ok := h.Find(mobi.ExthLanguage); ok {
		m.Language = string(v)
	}
	return m
}

func splitMulti(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
