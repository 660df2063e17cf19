package kfx

import (
	"maps"
	"strings"
)

// StyleScope represents a single level in the element hierarchy.
// It captures both the element tag and its classes at that level.
type StyleScope struct {
	Tag     string   // HTML element tag: "div", "p", "h1", "span", etc.
	Classes []string // CSS classes applied to this element
}

// emptyLineState tracks a pending margin contributed by an empty-line element,
// shared (via pointer) across all StyleContext copies within one block so the
// next resolved element can pick it up as its margin-top.
type emptyLineState struct {
	pendingMargin    float64
	keepMarginBottom bool
}

// StyleContext accumulates inherited CSS properties as we descend the element hierarchy.
// This mimics how browsers propagate inherited properties from parent to child.
//
// In CSS, some properties (font-*, color, text-align, line-height, etc.) automatically
// inherit from parent to child elements. Other properties (margin, padding, border, etc.)
// do NOT inherit - they apply only to the element where they're defined.
//
// When resolving a style for an element:
// 1. Inherited properties come from the accumulated context (ancestors)
// 2. Non-inherited properties come only from the element's own tag/classes
type StyleContext struct {
	registry *StyleRegistry

	// Inherited properties accumulated from ancestors.
	// Only CSS-inherited properties are stored here.
	inherited map[KFXSymbol]any

	// Full scope chain from root to current level (for debugging/future use)
	scopes []StyleScope

	// emptyLine tracks a pending margin contributed by an empty-line element.
	// Always initialized by NewStyleContext and preserved (by pointer) across copies.
	emptyLine *emptyLineState

	// marginOrigins tracks which style names have contributed to the current
	// cumulative margin-left/margin-right, set up by PushBlock.
	marginOrigins map[KFXSymbol]*marginOrigin

	// containerStack records the chain of block containers entered via PushBlock,
	// used for margin accumulation and style tracing.
	containerStack []containerFrame
}

// NewStyleContext creates an empty context (root level) bound to registry.
func NewStyleContext(registry *StyleRegistry) StyleContext {
	return StyleContext{
		registry:  registry,
		inherited: make(map[KFXSymbol]any),
		scopes:    nil,
		emptyLine: &emptyLineState{},
	}
}

// Push enters a new element scope and returns a new context with that element's
// inherited properties added. Non-inherited properties are ignored for inheritance.
//
// tag: HTML element type ("div", "p", "h1", etc.)
// classes: space-separated CSS classes ("section poem" or "" for none)
func (sc StyleContext) Push(tag, classes string) StyleContext {
	registry := sc.registry

	newInherited := make(map[KFXSymbol]any, len(sc.inherited))
	maps.Copy(newInherited, sc.inherited)

	if tag != "" && registry != nil {
		if def, ok := registry.Get(tag); ok {
			resolved := registry.resolveInheritance(def)
			for sym, val := range resolved.Properties {
				if isInheritedProperty(sym) {
					newInherited[sym] = val
				}
			}
		}
	}

	var classList []string
	if classes != "" {
		classList = strings.Fields(classes)
		for _, class := range classList {
			if registry == nil {
				continue
			}
			registry.EnsureBaseStyle(class)
			if def, ok := registry.Get(class); ok {
				resolved := registry.resolveInheritance(def)
				for sym, val := range resolved.Properties {
					if isInheritedProperty(sym) {
						newInherited[sym] = val
					}
				}
			}
		}
	}

	newScopes := append(sc.scopes, StyleScope{Tag: tag, Classes: classList})

	return StyleContext{
		registry:  registry,
		inherited: newInherited,
		scopes:    newScopes,
		emptyLine: sc.emptyLine,
	}
}
