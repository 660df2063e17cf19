package kfx

import (
	"fmt"
	"strings"
)

// styleUsage tracks how a resolved style is referenced, as a bitmask so a
// single generated style can carry more than one usage at once.
type styleUsage int

const (
	styleUsageText styleUsage = 1 << iota
	styleUsageImage
	styleUsageWrapper
	styleUsageInline
)

// MarkUsage records an additional usage flag against an already-resolved
// style name (one returned by ResolveStyle/RegisterResolved or a
// StyleContext). Unlike ResolveStyle it does not create or look up a style
// by CSS name - name must already be a generated style name.
func (sr *StyleRegistry) MarkUsage(name string, usage styleUsage) string {
	if name == "" {
		return ""
	}
	sr.used[name] = true
	sr.usage[name] = sr.usage[name] | usage
	return name
}

// RegisterResolved registers an already-merged property set as a style,
// deduplicating by signature, and optionally marks it used with the given
// usage flags. markUsed is false when usage will be finalized later (e.g.
// after style-event segmentation may drop some candidates).
func (sr *StyleRegistry) RegisterResolved(props map[KFXSymbol]any, usage styleUsage, markUsed bool) string {
	sig := styleSignature(props)
	if name, ok := sr.resolved[sig]; ok {
		if markUsed {
			sr.used[name] = true
			sr.usage[name] = sr.usage[name] | usage
		}
		return name
	}

	name := sr.nextResolvedStyleName()
	sr.resolved[sig] = name
	if markUsed {
		sr.used[name] = true
		sr.usage[name] = usage
	}
	sr.Register(StyleDef{Name: name, Properties: props})
	return name
}

// BuildFragments emits a $157 style fragment for every style that ended up
// marked used, applying the final KFX line-height/margin cleanup.
func (sr *StyleRegistry) BuildFragments() []*Fragment {
	fragments := make([]*Fragment, 0, len(sr.used))
	for _, name := range sr.order {
		if !sr.used[name] {
			continue
		}
		def := sr.styles[name]
		resolved := sr.resolveInheritance(def)
		resolved.Properties = stripZeroMargins(resolved.Properties)
		if sr.hasTextUsage(name) {
			resolved.Properties = ensureDefaultLineHeight(resolved.Properties)
		} else if _, hasBreakInside := resolved.Properties[SymBreakInside]; !hasBreakInside {
			resolved.Properties = stripLineHeight(resolved.Properties)
		}
		fragments = append(fragments, BuildStyle(resolved))
	}
	return fragments
}

// ApplyInferredParents sets up parent relationships for styles based on
// naming conventions (e.g. "chapter-title-header-first" inherits from
// "chapter-title-header"). Must run after all styles are registered but
// before any style resolution.
func (sr *StyleRegistry) ApplyInferredParents() {
	for name, def := range sr.styles {
		if def.Parent != "" {
			continue
		}
		parent := sr.inferParentStyle(name)
		if parent == "" {
			continue
		}
		sr.styles[name] = StyleDef{
			Name:       def.Name,
			Parent:     parent,
			Properties: def.Properties,
		}
		sr.tracer.TraceInheritSetup(name, parent)
	}
}

// PostProcessForKFX applies Kindle-specific enhancements after CSS
// conversion: layout-hints for titles, yj-break properties, and
// break-inside for keep-together behavior.
func (sr *StyleRegistry) PostProcessForKFX() {
	for name, def := range sr.styles {
		enhanced := sr.applyKFXEnhancements(name, def)
		if len(enhanced.Properties) != len(def.Properties) {
			sr.tracer.TracePostProcess(name, "KFX enhancements applied", enhanced.Properties)
		}
		sr.styles[name] = enhanced
	}
}

func (sr *StyleRegistry) applyKFXEnhancements(name string, def StyleDef) StyleDef {
	props := make(map[KFXSymbol]any, len(def.Properties))
	for k, v := range def.Properties {
		props[k] = v
	}

	if sr.shouldHaveLayoutHintTitle(name, props) {
		if _, exists := props[SymLayoutHints]; !exists {
			props[SymLayoutHints] = []any{SymbolValue(SymTreatAsTitle)}
		}
		delete(props, SymMarginBottom)
	}

	sr.convertPageBreaksToYjBreaks(props)

	if sr.shouldHaveBreakInsideAvoid(name) {
		if _, exists := props[SymBreakInside]; !exists {
			props[SymBreakInside] = SymbolValue(SymAvoid)
		}
		if _, exists := props[SymLineHeight]; !exists {
			props[SymLineHeight] = DimensionValue(1.0, SymUnitLh)
		}
	}

	return StyleDef{Name: def.Name, Parent: def.Parent, Properties: props}
}

// shouldHaveLayoutHintTitle reports whether name should carry
// layout-hints: [treat_as_title], matching heading elements, base
// "*-title-header" styles (not their style-event suffixed variants), the
// generated section titles, and centered subtitles.
func (sr *StyleRegistry) shouldHaveLayoutHintTitle(name string, props map[KFXSymbol]any) bool {
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	if strings.HasSuffix(name, "-title-header") {
		return true
	}
	switch name {
	case "annotation-title", "toc-title", "footnote-title":
		return true
	}
	if name == "subtitle" || strings.HasSuffix(name, "-subtitle") {
		if align, ok := props[SymTextAlignment]; ok && align == SymbolValue(SymCenter) {
			return true
		}
	}
	return false
}

// shouldHaveBreakInsideAvoid reports whether name is a title-wrapper style
// that should be kept together with break-inside: avoid.
func (sr *StyleRegistry) shouldHaveBreakInsideAvoid(name string) bool {
	switch name {
	case "body-title", "chapter-title", "section-title":
		return true
	}
	return strings.HasSuffix(name, "-title") && !strings.HasSuffix(name, "-title-header")
}

// convertPageBreaksToYjBreaks converts the CSS page-break intermediate
// markers into KFX yj-break-before/after properties.
func (sr *StyleRegistry) convertPageBreaksToYjBreaks(props map[KFXSymbol]any) {
	if keepFirst, ok := props[SymKeepFirst]; ok {
		if _, exists := props[SymYjBreakBefore]; !exists {
			switch v := keepFirst.(type) {
			case SymbolValue:
				props[SymYjBreakBefore] = v
			case KFXSymbol:
				props[SymYjBreakBefore] = SymbolValue(v)
			}
		}
		delete(props, SymKeepFirst)
	}

	if keepLast, ok := props[SymKeepLast]; ok {
		if _, exists := props[SymYjBreakAfter]; !exists {
			switch v := keepLast.(type) {
			case SymbolValue:
				props[SymYjBreakAfter] = v
			case KFXSymbol:
				props[SymYjBreakAfter] = SymbolValue(v)
			}
		}
		delete(props, SymKeepLast)
	}

	if _, hasBreakInside := props[SymBreakInside]; hasBreakInside {
		delete(props, SymYjBreakBefore)
	}
}

// DefaultStyleRegistry seeds a registry with the baseline HTML element
// styles every book format maps onto before any CSS is overlaid.
func DefaultStyleRegistry() *StyleRegistry {
	sr := NewStyleRegistry()

	// kfx-unknown is the catch-all base for classes absent from CSS; it
	// carries only what's needed to avoid unstyled text collapsing.
	sr.Register(NewStyle("kfx-unknown").
		LineHeight(1.0, SymUnitLh).
		Build())

	sr.Register(NewStyle("p").Build())

	sr.Register(NewStyle("h1").FontSize(2.0, SymUnitEm).FontWeight(SymBold).Build())
	sr.Register(NewStyle("h2").FontSize(1.5, SymUnitEm).FontWeight(SymBold).Build())
	sr.Register(NewStyle("h3").FontSize(1.17, SymUnitEm).FontWeight(SymBold).Build())
	sr.Register(NewStyle("h4").FontSize(1.0, SymUnitEm).FontWeight(SymBold).Build())
	sr.Register(NewStyle("h5").FontSize(0.83, SymUnitEm).FontWeight(SymBold).Build())
	sr.Register(NewStyle("h6").FontSize(0.67, SymUnitEm).FontWeight(SymBold).Build())

	sr.Register(NewStyle("code").FontFamily("monospace").Build())
	sr.Register(NewStyle("pre").FontFamily("monospace").Build())

	sr.Register(NewStyle("blockquote").
		MarginLeft(40, SymUnitPx).
		MarginRight(40, SymUnitPx).
		Build())

	// Table styles split container (border/padding/vertical-align) from
	// text (alignment only), matching how KFX keeps the two separate.
	sr.Register(NewStyle("table").
		BoxAlign(SymCenter).
		LineHeight(1, SymUnitLh).
		MarginTop(0.833, SymUnitLh).
		Width(32, SymUnitEm).
		MinWidth(100, SymUnitPercent).
		MaxWidth(100, SymUnitPercent).
		SizingBounds(SymContentBounds).
		TextIndent(0, SymUnitPercent).
		Build())

	sr.Register(NewStyle("td-container").
		Inherit("td").
		BorderStyle(SymSolid).
		BorderWidth(0.45, SymUnitPt).
		PaddingTop(0.416667, SymUnitLh).
		PaddingBottom(0.416667, SymUnitLh).
		PaddingLeft(1.563, SymUnitPercent).
		PaddingRight(1.563, SymUnitPercent).
		YjVerticalAlign(SymCenter).
		Build())

	sr.Register(NewStyle("th-container").
		Inherit("th").
		BorderStyle(SymSolid).
		BorderWidth(0.45, SymUnitPt).
		PaddingTop(0.416667, SymUnitLh).
		PaddingBottom(0.416667, SymUnitLh).
		PaddingLeft(1.563, SymUnitPercent).
		PaddingRight(1.563, SymUnitPercent).
		YjVerticalAlign(SymCenter).
		Build())

	sr.Register(NewStyle("td-text").TextAlign(SymLeft).Build())
	sr.Register(NewStyle("td-text-center").TextAlign(SymCenter).Build())
	sr.Register(NewStyle("td-text-right").TextAlign(SymRight).Build())
	sr.Register(NewStyle("td-text-justify").TextAlign(SymJustify).Build())
	sr.Register(NewStyle("td-text-left").TextAlign(SymLeft).Build())

	sr.Register(NewStyle("th-text").TextAlign(SymCenter).Build())
	sr.Register(NewStyle("th-text-center").TextAlign(SymCenter).Build())
	sr.Register(NewStyle("th-text-left").TextAlign(SymLeft).Build())
	sr.Register(NewStyle("th-text-right").TextAlign(SymRight).Build())
	sr.Register(NewStyle("th-text-justify").TextAlign(SymJustify).Build())

	sr.Register(NewStyle("th-image").BoxAlign(SymCenter).Build())
	sr.Register(NewStyle("th-image-center").BoxAlign(SymCenter).Build())
	sr.Register(NewStyle("th-image-left").BoxAlign(SymLeft).Build())
	sr.Register(NewStyle("th-image-right").BoxAlign(SymRight).Build())

	sr.Register(NewStyle("td-image").BoxAlign(SymLeft).Build())
	sr.Register(NewStyle("td-image-center").BoxAlign(SymCenter).Build())
	sr.Register(NewStyle("td-image-left").BoxAlign(SymLeft).Build())
	sr.Register(NewStyle("td-image-right").BoxAlign(SymRight).Build())

	// CSS-parsed td/th exist for CSS compatibility; table rendering itself
	// uses the td-container/td-text split above.
	sr.Register(NewStyle("th").FontWeight(SymBold).Build())
	sr.Register(NewStyle("td").Build())

	sr.Register(NewStyle("strong").FontWeight(SymBold).Build())
	sr.Register(NewStyle("b").FontWeight(SymBold).Build())
	sr.Register(NewStyle("em").FontStyle(SymItalic).Build())
	sr.Register(NewStyle("i").FontStyle(SymItalic).Build())
	sr.Register(NewStyle("u").Underline(true).Build())
	sr.Register(NewStyle("s").Strikethrough(true).Build())
	sr.Register(NewStyle("strike").Strikethrough(true).Build())
	sr.Register(NewStyle("del").Strikethrough(true).Build())

	// sub/sup use rem (not em) so nesting under another inline style (e.g.
	// a footnote link) doesn't compound font-size scaling.
	sr.Register(NewStyle("sub").BaselineStyle(SymSubscript).FontSize(0.75, SymUnitRem).Build())
	sr.Register(NewStyle("sup").BaselineStyle(SymSuperscript).FontSize(0.75, SymUnitRem).Build())

	// In headings, sub/sup only shift baseline - the heading's own
	// font-size should carry through rather than shrinking.
	for i := 1; i <= 6; i++ {
		hTag := fmt.Sprintf("h%d", i)
		sr.Register(NewStyle(hTag + "--sub").BaselineStyle(SymSubscript).Build())
		sr.Register(NewStyle(hTag + "--sup").BaselineStyle(SymSuperscript).Build())
	}

	sr.Register(NewStyle("small").FontSizeSmaller().Build())

	// Semantic inline roles carried over from the source markup's class
	// names (emphasis/strikethrough), independent of the HTML tag used.
	sr.Register(NewStyle("emphasis").FontStyle(SymItalic).Build())
	sr.Register(NewStyle("strikethrough").Strikethrough(true).Build())

	sr.Register(NewStyle("image").
		TextAlign(SymCenter).
		TextIndent(0, SymUnitPercent).
		Build())

	return sr
}
