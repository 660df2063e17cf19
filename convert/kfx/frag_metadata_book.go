package kfx

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"bookforge/book"
)

// BuildBookMetadata builds the $490 categorised book_metadata singleton.
// Grounded on the reference KFX writer's add_metadata: four groups
// (audit, title, ebook, capability), each a list of {key, value} entries.
// coverResourceName is the resource fragment id of the cover image, or ""
// if the book has none.
func BuildBookMetadata(meta book.Metadata, coverResourceName string) *Fragment {
	asin := bookASIN(meta)

	audit := NewCategorisedMetadata("kindle_audit_metadata", []any{
		NewMetadataEntry("file_creator", "bookforge"),
		NewMetadataEntry("creator_version", "1"),
	})

	titleEntries := []any{
		NewMetadataEntry("title", meta.Title),
	}
	for _, author := range meta.Authors {
		titleEntries = append(titleEntries, NewMetadataEntry("author", author))
	}
	if meta.Language != "" {
		titleEntries = append(titleEntries, NewMetadataEntry("language", meta.Language))
	}
	if meta.Publisher != "" {
		titleEntries = append(titleEntries, NewMetadataEntry("publisher", meta.Publisher))
	}
	if meta.Description != "" {
		titleEntries = append(titleEntries, NewMetadataEntry("description", meta.Description))
	}
	titleEntries = append(titleEntries,
		NewMetadataEntry("ASIN", asin),
		NewMetadataEntry("content_id", asin),
		NewMetadataEntry("cde_content_type", "EBOK"),
	)
	if coverResourceName != "" {
		titleEntries = append(titleEntries, NewMetadataEntry("cover_image", SymbolByName(coverResourceName)))
	}
	title := NewCategorisedMetadata("kindle_title_metadata", titleEntries)

	ebook := NewCategorisedMetadata("kindle_ebook_metadata", []any{
		NewMetadataEntry("selection", "enabled"),
		NewMetadataEntry("nested_span", "enabled"),
	})

	capability := NewCategorisedMetadata("kindle_capability_metadata", []any{})

	root := NewStruct().SetList(SymCatMetadata, []any{audit, title, ebook, capability})

	return NewRootFragment(SymBookMetadata, root)
}

// bookASIN derives a stable synthetic ASIN from the book's identity, the way
// a real pipeline would hash title+authors+identifier into a content id. We
// have no Amazon catalog to assign a real one, so this is a deterministic
// placeholder, not a genuine ASIN.
func bookASIN(meta book.Metadata) string {
	h := sha1.New()
	h.Write([]byte(meta.Title))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(meta.Authors, ",")))
	h.Write([]byte{0})
	h.Write([]byte(meta.Identifier))
	sum := h.Sum(nil)
	return "B" + strings.ToUpper(hex.EncodeToString(sum[:5]))
}

// BuildReadingOrderMetadata builds the $258 metadata singleton carrying the
// book's single default reading order (the chapter/section spine).
func BuildReadingOrderMetadata(sectionNames []string) *Fragment {
	sections := make([]any, 0, len(sectionNames))
	for _, name := range sectionNames {
		sections = append(sections, SymbolByName(name))
	}
	ro := NewReadingOrder(SymDefault, sections)
	root := NewStruct().SetList(SymReadingOrders, []any{ro})
	return NewRootFragment(SymMetadata, root)
}

// BuildDocumentData builds the $538 document_data singleton: the same
// reading order as BuildReadingOrderMetadata plus the fixed reference-format
// boilerplate fields every KFX document carries regardless of content
// (grounded on the reference writer's add_document_data).
func BuildDocumentData(sectionNames []string, totalContentItems int) *Fragment {
	sections := make([]any, 0, len(sectionNames))
	for _, name := range sectionNames {
		sections = append(sections, SymbolByName(name))
	}
	ro := NewReadingOrder(SymDefault, sections)

	root := NewStruct().
		SetList(SymReadingOrders, []any{ro}).
		SetInt(KFXSymbol(8), int64(totalContentItems)).
		SetStruct(KFXSymbol(16), DimensionValue(0, SymUnitEm)).
		SetStruct(KFXSymbol(42), DimensionValue(0, SymUnitEm)).
		SetSymbol(KFXSymbol(112), KFXSymbol(383)).
		SetSymbol(KFXSymbol(192), KFXSymbol(376)).
		SetSymbol(KFXSymbol(436), KFXSymbol(441)).
		SetSymbol(KFXSymbol(477), KFXSymbol(56)).
		SetSymbol(KFXSymbol(560), KFXSymbol(557))

	return NewRootFragment(SymDocumentData, root)
}
