package kfx

import (
	"strconv"
	"strings"

	"bookforge/book"
)

// bookStyleProps converts a chapter's already-resolved book.ComputedStyle
// directly into KFX style properties, bypassing the CSS cascade machinery
// entirely: the IR carries concrete property values per node, so
// there is nothing left to resolve against a stylesheet. Grounded on the
// reference KFX writer's style_to_ion, which does the same direct
// ParsedStyle -> Ion conversion with no cascade step.
func bookStyleProps(cs book.ComputedStyle) map[KFXSymbol]any {
	b := NewStyle("")

	if len(cs.FontFamily) > 0 {
		b.FontFamily(strings.Join(cs.FontFamily, ", "))
	}
	if cs.FontSize > 0 {
		b.FontSize(cs.FontSize, bookDimensionUnit(cs.FontSizeUnit, SymUnitEm))
	}
	if sym, ok := bookFontWeightSymbol(cs.FontWeight); ok {
		b.FontWeight(sym)
	}
	if sym, ok := bookFontStyleSymbol(cs.FontStyle); ok {
		b.FontStyle(sym)
	}
	if cs.LineHeight > 0 {
		b.LineHeight(cs.LineHeight, SymUnitLh)
	}
	if sym, ok := bookTextAlignSymbol(cs.TextAlign); ok {
		b.TextAlign(sym)
	}
	if cs.Indent != 0 {
		b.TextIndent(cs.Indent, SymUnitEm)
	}
	if cs.MarginTop != 0 {
		b.MarginTop(cs.MarginTop, SymUnitLh)
	}
	if cs.MarginBottom != 0 {
		b.MarginBottom(cs.MarginBottom, SymUnitLh)
	}
	if cs.MarginLeft != 0 {
		b.MarginLeft(cs.MarginLeft, SymUnitEm)
	}
	if cs.MarginRight != 0 {
		b.MarginRight(cs.MarginRight, SymUnitEm)
	}
	if cs.PaddingTop != 0 {
		b.PaddingTop(cs.PaddingTop, SymUnitLh)
	}
	if cs.PaddingBottom != 0 {
		b.PaddingBottom(cs.PaddingBottom, SymUnitLh)
	}
	if cs.PaddingLeft != 0 {
		b.PaddingLeft(cs.PaddingLeft, SymUnitEm)
	}
	if cs.PaddingRight != 0 {
		b.PaddingRight(cs.PaddingRight, SymUnitEm)
	}
	if cs.SmallCaps {
		b.props[SymFontStyle] = SymbolValue(SymItalic)
	}

	return b.props
}

// bookDimensionUnit maps a book.ComputedStyle unit string ("em", "px", "%", "lh")
// to its KFX unit symbol, falling back to def when unrecognized or empty.
func bookDimensionUnit(unit string, def KFXSymbol) KFXSymbol {
	switch strings.ToLower(unit) {
	case "em":
		return SymUnitEm
	case "lh":
		return SymUnitLh
	case "%", "percent":
		return SymUnitPercent
	default:
		return def
	}
}

func bookFontWeightSymbol(weight string) (KFXSymbol, bool) {
	w := strings.ToLower(strings.TrimSpace(weight))
	switch w {
	case "":
		return 0, false
	case "bold", "bolder":
		return SymBold, true
	case "normal", "regular":
		return SymNormal, true
	default:
		if n, err := strconv.Atoi(w); err == nil {
			if n >= 600 {
				return SymBold, true
			}
			return SymNormal, true
		}
		return 0, false
	}
}

func bookFontStyleSymbol(style string) (KFXSymbol, bool) {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "italic", "oblique":
		return SymItalic, true
	case "normal":
		return SymNormal, true
	default:
		return 0, false
	}
}

func bookTextAlignSymbol(align string) (KFXSymbol, bool) {
	switch strings.ToLower(strings.TrimSpace(align)) {
	case "left", "start":
		return SymLeft, true
	case "right", "end":
		return SymRight, true
	case "center":
		return SymCenter, true
	case "justify":
		return SymJustify, true
	default:
		return 0, false
	}
}
