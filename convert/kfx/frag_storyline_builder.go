package kfx

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"bookforge/book"
)

// BuildStoryline creates a $259 storyline fragment.
// Based on reference KFX, storyline has:
// - Named FID (like "l1", "l2", etc.) - simple decimal format for readability
// - $176 (story_name) as symbol reference
// - $146 (content_list) with content entries
//
// Naming pattern: "l{N}" where N is sequential (e.g., l1, l2, l3).
// Uses simple format instead of base36 for better human readability during debugging.
func BuildStoryline(storyName string, contentEntries []any) *Fragment {
	storyline := NewStruct().
		Set(SymStoryName, SymbolByName(storyName)) // $176 = story_name as symbol

	if len(contentEntries) > 0 {
		storyline.SetList(SymContentList, contentEntries) // $146 = content_list
	}

	return &Fragment{
		FType:   SymStoryline,
		FIDName: storyName,
		Value:   storyline,
	}
}

// BuildSection creates a $260 section fragment.
// Based on reference KFX, section has:
// - Named FID (like "c0", "c1", etc.) - simple decimal format for readability
// - $174 (section_name) as symbol reference
// - $141 (page_templates) with layout entries for storylines
//
// Naming pattern: "c{N}" where N is sequential starting from 0 (e.g., c0, c1, c2).
// Uses simple format instead of base36 for better human readability during debugging.
func BuildSection(sectionName string, pageTemplates []any) *Fragment {
	section := NewStruct().
		Set(SymSectionName, SymbolByName(sectionName)) // $174 = section_name as symbol

	if len(pageTemplates) > 0 {
		section.SetList(SymPageTemplates, pageTemplates) // $141 = page_templates
	}

	return &Fragment{
		FType:   SymSection,
		FIDName: sectionName,
		Value:   section,
	}
}

// NewPageTemplateEntry creates a page template entry for section's $141.
// Based on KPV reference: {$155: eid, $159: $269, $176: storyline_name}
// The page template simply references the storyline by name and uses text type.
func NewPageTemplateEntry(eid int, storylineName string) StructValue {
	return NewStruct().
		SetInt(SymUniqueID, int64(eid)).               // $155 = id
		SetSymbol(SymType, SymText).                   // $159 = type = $269 (text)
		Set(SymStoryName, SymbolByName(storylineName)) // $176 = story_name ref
}

// NewCoverPageTemplateEntry creates a page template entry for a cover section.
// Based on reference KFX cover section: {$140: $320, $155: eid, $156: $326, $159: $270, $176: storyline, $66: width, $67: height}
// The layout mode ($156) uses scale_fit ($326) which preserves aspect ratio.
// Note: KFX doesn't have a direct equivalent to EPUB's "stretch" mode, so scale_fit is used for all modes.
func NewCoverPageTemplateEntry(eid int, storylineName string, width, height int) StructValue {
	return NewStruct().
		SetSymbol(SymFloat, SymCenter).                 // $140 = center ($320)
		SetInt(SymUniqueID, int64(eid)).                // $155 = id
		SetSymbol(SymLayout, SymScaleFit).              // $156 = scale_fit ($326)
		SetSymbol(SymType, SymContainer).               // $159 = container ($270)
		Set(SymStoryName, SymbolByName(storylineName)). // $176 = story_name ref
		SetInt(SymContainerWidth, int64(width)).        // $66 = container width
		SetInt(SymContainerHeight, int64(height))       // $67 = container height
}

// SegmentStyleEvents takes inline style events and a base style, and returns
// non-overlapping events. The base style fills gaps between inline events.
// This matches KP3 behavior which throws "Cannot create Overlapping Style Events"
// if overlaps are detected.
//
// For example, if text is "Hello World Link Here" (21 chars) with:
//   - inline event at offset=12, len=4 (link style)
//   - base style covering the whole text
//
// Instead of overlapping events, we produce:
//   - offset=0, len=12, base style (before link)
//   - offset=12, len=4, link style
//   - offset=16, len=5, base style (after link)
//
// Events are returned sorted by offset ascending, then length ascending.
func SegmentStyleEvents(inlineEvents []StyleEventRef, baseStyle string, totalLength int) []StyleEventRef {
	if totalLength <= 0 {
		return nil
	}

	// If no inline events, just return base style covering everything
	if len(inlineEvents) == 0 {
		if baseStyle == "" {
			return nil
		}
		return []StyleEventRef{{Offset: 0, Length: totalLength, Style: baseStyle}}
	}

	// Sort inline events by offset, then by length (shorter first at same offset)
	sorted := make([]StyleEventRef, len(inlineEvents))
	copy(sorted, inlineEvents)
	slices.SortFunc(sorted, func(a, b StyleEventRef) int {
		if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
			return c
		}
		return cmp.Compare(a.Length, b.Length)
	})

	// Build segmented events list
	var result []StyleEventRef
	pos := 0

	for _, ev := range sorted {
		// Skip events that start before current position (shouldn't happen with proper input)
		if ev.Offset < pos {
			continue
		}

		// Fill gap before this event with base style
		if baseStyle != "" && ev.Offset > pos {
			result = append(result, StyleEventRef{
				Offset: pos,
				Length: ev.Offset - pos,
				Style:  baseStyle,
			})
		}

		// Add the inline event
		result = append(result, ev)
		pos = ev.Offset + ev.Length
	}

	// Fill remaining gap after last event with base style
	if baseStyle != "" && pos < totalLength {
		result = append(result, StyleEventRef{
			Offset: pos,
			Length: totalLength - pos,
			Style:  baseStyle,
		})
	}

	return result
}

// StorylineBuilder helps build storyline content incrementally.
type StorylineBuilder struct {
	name            string // Storyline name (e.g., "l1")
	sectionName     string // Associated section name (e.g., "c0")
	styles          *StyleRegistry
	contentEntries  []ContentRef
	eidCounter      int
	pageTemplateEID int // Separate EID for page template container

	// Block wrapper support - stack allows nested wrappers.
	blockStack []*BlockBuilder
}

// AllEIDs returns all EIDs used by this section (page template + content entries).
// For wrapper containers (entries with Children), wrapper EID comes first in DFS order,
// followed by all child EIDs - this matches how position_id_map is validated.
func (sb *StorylineBuilder) AllEIDs() []int {
	eids := make([]int, 0, len(sb.contentEntries)+1)
	eids = append(eids, sb.pageTemplateEID)
	for _, ref := range sb.contentEntries {
		if ref.RawEntry != nil {
			// Pre-built entry (e.g., table): recursively collect all EIDs
			eids = append(eids, collectStructEIDs(ref.RawEntry)...)
		} else if len(ref.Children) > 0 {
			// Wrapper container: include wrapper EID first, then child EIDs
			eids = append(eids, ref.EID)
			eids = append(eids, collectChildEIDs(ref.Children)...)
		} else {
			// Regular content: include the entry's EID
			eids = append(eids, ref.EID)
		}
	}
	return eids
}

// NewStorylineBuilder creates a new storyline builder.
// Allocates the first EID for the page template container.
func NewStorylineBuilder(storyName, sectionName string, startEID int, styles *StyleRegistry) *StorylineBuilder {
	return &StorylineBuilder{
		name:            storyName,
		sectionName:     sectionName,
		styles:          styles,
		pageTemplateEID: startEID,     // First EID goes to page template
		eidCounter:      startEID + 1, // Content EIDs start after page template
	}
}

// AddTable adds a table with proper KFX structure.
// Structure: table($278) -> body($454) -> rows($279) -> cells($270) -> text($269)
// table is a *book.Node with Role == book.RoleTable, whose children are
// RoleTableRow nodes whose children are RoleTableCell nodes.
func (sb *StorylineBuilder) AddTable(table *book.Node, styles *StyleRegistry, ca *ContentAccumulator) int {
	tableEID := sb.eidCounter
	sb.eidCounter++

	// Build rows
	var rowEntries []any
	for _, row := range table.Children {
		if row.Role != book.RoleTableRow {
			continue
		}
		rowEID := sb.eidCounter
		sb.eidCounter++

		// Build cells for this row
		var cellEntries []any
		for _, cell := range row.Children {
			if cell.Role != book.RoleTableCell {
				continue
			}
			cellEID := sb.eidCounter
			sb.eidCounter++

			// Get cell text content
			var cellText strings.Builder
			book.Walk(cell, func(n *book.Node) {
				if n.Role == book.RoleText {
					cellText.WriteString(n.Text)
				}
			})
			text := cellText.String()

			// Add text to content accumulator
			contentName, offset := ca.Add(text)

			// Determine cell style based on header/alignment (a header
			// cell is tagged RoleTableCell with Level == 1).
			var cellStyle string
			if cell.Level == 1 {
				cellStyle = styles.ResolveStyle("th", styleUsageText)
			} else {
				cellStyle = styles.ResolveStyle("td", styleUsageText)
			}
			if styles != nil {
				styles.MarkUsage(cellStyle, styleUsageText)
			}

			// Create text entry inside cell
			textEID := sb.eidCounter
			sb.eidCounter++
			textEntry := NewStruct().
				SetInt(SymUniqueID, int64(textEID)).
				SetSymbol(SymType, SymText).
				Set(SymStyle, SymbolByName(cellStyle))

			// Add content reference
			contentRef := map[string]any{
				"name": SymbolByName(contentName),
				"$403": offset,
			}
			textEntry.Set(SymContent, contentRef)

			// Create cell container with nested text
			cellEntry := NewStruct().
				SetInt(SymUniqueID, int64(cellEID)).
				SetSymbol(SymType, SymContainer).         // $270
				SetSymbol(SymLayout, SymVertical).        // $156 = $323 (vertical)
				SetList(SymContentList, []any{textEntry}) // Nested text content

			// Add colspan/rowspan if specified
			if cell.ColSpan > 1 {
				cellEntry.SetInt(SymTableColSpan, int64(cell.ColSpan))
			}
			if cell.RowSpan > 1 {
				cellEntry.SetInt(SymTableRowSpan, int64(cell.RowSpan))
			}

			cellEntries = append(cellEntries, cellEntry)
		}

		// Create row entry
		rowEntry := NewStruct().
			SetInt(SymUniqueID, int64(rowEID)).
			SetSymbol(SymType, SymTableRow). // $279
			SetList(SymContentList, cellEntries)

		rowEntries = append(rowEntries, rowEntry)
	}

	// Create body wrapper
	bodyEID := sb.eidCounter
	sb.eidCounter++
	bodyEntry := NewStruct().
		SetInt(SymUniqueID, int64(bodyEID)).
		SetSymbol(SymType, SymTableBody). // $454
		SetList(SymContentList, rowEntries)

	// Create table entry with proper structure
	tableStyle := styles.ResolveStyle("table", styleUsageWrapper)
	styles.tracer.TraceAssign(traceSymbolName(SymTable), fmt.Sprintf("%d", tableEID), tableStyle, sb.sectionName+"/"+sb.name)
	styles.MarkUsage(tableStyle, styleUsageWrapper)
	tableEntry := NewStruct().
		SetInt(SymUniqueID, int64(tableEID)).
		SetSymbol(SymType, SymTable). // $278
		Set(SymStyle, SymbolByName(tableStyle)).
		SetBool(SymTableBorderCollapse, true). // $150 = true
		SetList(SymContentList, []any{bodyEntry})

	// Add to storyline
	if len(sb.blockStack) > 0 {
		sb.blockStack[len(sb.blockStack)-1].children = append(sb.blockStack[len(sb.blockStack)-1].children, ContentRef{
			EID:      tableEID,
			Type:     SymTable,
			RawEntry: tableEntry,
		})
	} else {
		sb.contentEntries = append(sb.contentEntries, ContentRef{
			EID:      tableEID,
			Type:     SymTable,
			RawEntry: tableEntry,
		})
	}

	return tableEID
}

// FirstEID returns the first EID used by this storyline content.
func (sb *StorylineBuilder) FirstEID() int {
	if len(sb.contentEntries) > 0 {
		return sb.contentEntries[0].EID
	}
	return sb.eidCounter
}

// NextEID returns the next EID that will be assigned.
func (sb *StorylineBuilder) NextEID() int {
	return sb.eidCounter
}

// SetNextEID updates the EID counter (used when building complex structures externally).
func (sb *StorylineBuilder) SetNextEID(eid int) {
	sb.eidCounter = eid
}

// PageTemplateEID returns the EID allocated for the page template container.
func (sb *StorylineBuilder) PageTemplateEID() int {
	return sb.pageTemplateEID
}

// Build creates the storyline and section fragments.
// Returns storyline fragment, section fragment.
func (sb *StorylineBuilder) Build() (*Fragment, *Fragment) {
	// Build content entries for storyline
	entries := make([]any, 0, len(sb.contentEntries))
	for _, ref := range sb.contentEntries {
		entries = append(entries, NewContentEntry(ref))
	}

	// Create storyline fragment
	storylineFrag := BuildStoryline(sb.name, entries)

	// Create page template entry for section - uses dedicated EID
	pageTemplates := []any{
		NewPageTemplateEntry(sb.pageTemplateEID, sb.name),
	}

	// Create section fragment
	sectionFrag := BuildSection(sb.sectionName, pageTemplates)

	return storylineFrag, sectionFrag
}

// BuildStorylineOnly creates only the storyline fragment without the section.
// Used for cover sections where the section uses container type instead of text type.
func (sb *StorylineBuilder) BuildStorylineOnly() *Fragment {
	entries := make([]any, 0, len(sb.contentEntries))
	for _, ref := range sb.contentEntries {
		entries = append(entries, NewContentEntry(ref))
	}
	return BuildStoryline(sb.name, entries)
}
