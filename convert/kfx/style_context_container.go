package kfx

import (
	"fmt"
	"strconv"
	"strings"
)

// marginOrigin tracks the accumulated value of a cumulative margin property
// (margin-left/margin-right) and which style names have already contributed
// to it, so the same style entered twice within one container doesn't double
// the margin (YJCumulativeInSameContainerRuleMerger semantics).
type marginOrigin struct {
	value        any
	contributors map[string]bool
}

// containerFrame records one level of the container stack pushed by PushBlock.
type containerFrame struct {
	marginTop         float64
	marginBottom      float64
	itemCount         int
	currentItem       int
	isLastInParent    bool
	titleBlockMargins bool
}

// Advance moves the current container frame to the next item position.
// Call this after resolving each child's style so the following child sees
// the correct position within the container.
func (sc StyleContext) Advance() StyleContext {
	if len(sc.containerStack) == 0 {
		return sc
	}

	newStack := make([]containerFrame, len(sc.containerStack))
	copy(newStack, sc.containerStack)
	top := newStack[len(newStack)-1]
	if top.currentItem < top.itemCount-1 {
		top.currentItem++
	}
	newStack[len(newStack)-1] = top

	next := sc
	next.containerStack = newStack
	return next
}

// ScopePath returns a CSS-like path showing the element hierarchy, e.g.
// "div.poem > div.stanza", for use in style tracing.
func (sc StyleContext) ScopePath() string {
	if len(sc.scopes) == 0 {
		return "(root)"
	}

	parts := make([]string, 0, len(sc.scopes))
	for _, scope := range sc.scopes {
		var b strings.Builder
		if scope.Tag != "" {
			b.WriteString(scope.Tag)
		}
		if len(scope.Classes) > 0 {
			b.WriteString(".")
			b.WriteString(strings.Join(scope.Classes, "."))
		}
		if b.Len() == 0 {
			b.WriteString("(anonymous)")
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, " > ")
}

// ContainerPath returns the container stack with positions and flags, e.g.
// "poem[2/3] > stanza[1/14] (title-block)", for use in style tracing.
func (sc StyleContext) ContainerPath() string {
	if len(sc.containerStack) == 0 {
		return "(no containers)"
	}

	parts := make([]string, 0, len(sc.containerStack))
	for i, frame := range sc.containerStack {
		var name string
		if i < len(sc.scopes) {
			scope := sc.scopes[i]
			switch {
			case scope.Tag != "" && len(scope.Classes) > 0:
				name = strings.Join(scope.Classes, ".")
			case scope.Tag != "":
				name = scope.Tag
			case len(scope.Classes) > 0:
				name = strings.Join(scope.Classes, ".")
			default:
				name = "(anonymous)"
			}
		} else {
			name = "(anonymous)"
		}

		part := fmt.Sprintf("%s[%s/%s]", name, strconv.Itoa(frame.currentItem+1), strconv.Itoa(frame.itemCount))
		if frame.titleBlockMargins {
			part += " (title-block)"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " > ")
}
