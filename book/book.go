// Package book implements the format-agnostic book intermediate
// representation shared by every importer/exporter.
package book

import "bookforge/bookerr"

// Metadata holds the book-level descriptive fields.
type Metadata struct {
	Title       string
	Authors     []string
	Language    string
	Identifier  string
	Publisher   string
	Description string
	Subjects    []string
	Date        string
	Rights      string
	CoverHref   string // asset path, empty if no cover
}

// SpineItem is one ordered chapter reference. ID is opaque to
// callers; SizeEstimate helps exporters balance output record sizes.
type SpineItem struct {
	ID           string
	SizeEstimate int
}

// TOCNode is one hierarchical table-of-contents entry. Href is
// "path" or "path#fragment". PlayOrder, when nonzero, is the author's
// declared navigation order, independent of document order: both
// orderings must be preserved.
type TOCNode struct {
	Title     string
	Href      string
	Children  []*TOCNode
	PlayOrder int
}

// LandmarkKind tags a landmark's semantic role.
type LandmarkKind string

const (
	LandmarkCover     LandmarkKind = "cover"
	LandmarkBodymatter LandmarkKind = "bodymatter"
	LandmarkTOC       LandmarkKind = "toc"
)

// Landmark is one cover/bodymatter/etc. entry.
type Landmark struct {
	Kind LandmarkKind
	Href string
}

// ChapterLoader lazily loads a chapter's raw XHTML bytes by spine id, and
// an asset loader lazily loads asset bytes by path.
type ChapterLoader func(id string) ([]byte, error)
type AssetLoader func(path string) ([]byte, error)

// Book is the format-agnostic in-memory representation every
// importer produces and every exporter consumes.
type Book struct {
	Metadata  Metadata
	Spine     []SpineItem
	TOC       []*TOCNode
	Landmarks []Landmark

	// AssetPaths enumerates every known asset path without loading
	// bytes eagerly.
	AssetPaths []string

	loadChapter ChapterLoader
	loadAsset   AssetLoader

	chapterCache map[string][]byte
	assetCache   map[string][]byte
	treeCache    map[string]*Tree
}

// New constructs a Book with the given lazy loaders. Metadata and spine
// are expected to already be populated by the importer at construction
// time.
func New(meta Metadata, spine []SpineItem, toc []*TOCNode, landmarks []Landmark, assetPaths []string, loadChapter ChapterLoader, loadAsset AssetLoader) *Book {
	return &Book{
		Metadata:     meta,
		Spine:        spine,
		TOC:          toc,
		Landmarks:    landmarks,
		AssetPaths:   assetPaths,
		loadChapter:  loadChapter,
		loadAsset:    loadAsset,
		chapterCache: make(map[string][]byte),
		assetCache:   make(map[string][]byte),
		treeCache:    make(map[string]*Tree),
	}
}

// Chapter returns the raw XHTML bytes for spine item id, loading and
// caching it on first request.
func (b *Book) Chapter(id string) ([]byte, error) {
	if cached, ok := b.chapterCache[id]; ok {
		return cached, nil
	}
	if b.loadChapter == nil {
		return nil, bookerr.New(bookerr.MissingReference, "no chapter loader configured for id "+id)
	}
	data, err := b.loadChapter(id)
	if err != nil {
		return nil, err
	}
	b.chapterCache[id] = data
	return data, nil
}

// Asset returns the raw bytes for asset path, loading and caching it on
// first request.
func (b *Book) Asset(path string) ([]byte, error) {
	if cached, ok := b.assetCache[path]; ok {
		return cached, nil
	}
	if b.loadAsset == nil {
		return nil, bookerr.New(bookerr.MissingReference, "no asset loader configured for path "+path)
	}
	data, err := b.loadAsset(path)
	if err != nil {
		return nil, err
	}
	b.assetCache[path] = data
	return data, nil
}

// HasSpineID reports whether id names a known spine item (used to
// validate the spine-id-uniqueness invariant at construction time by
// callers, and for resolver lookups).
func (b *Book) HasSpineID(id string) bool {
	for _, s := range b.Spine {
		if s.ID == id {
			return true
		}
	}
	return false
}

// CachedTree returns a previously-built normalized tree for chapterID, if
// the IR normalizer has already built and cached one.
func (b *Book) CachedTree(chapterID string) (*Tree, bool) {
	t, ok := b.treeCache[chapterID]
	return t, ok
}

// StoreTree caches a normalized tree for chapterID.
func (b *Book) StoreTree(chapterID string, t *Tree) {
	b.treeCache[chapterID] = t
}
