package book

// Normalizer implements the optional write-pass global style dedup
// described inIt owns no I/O; it consumes and produces IR
// only.
type Normalizer struct {
	global *StylePool
	// remap[chapterID][localID] = globalID
	remap map[string]map[StyleID]StyleID
}

// NewNormalizer creates an empty Normalizer with a fresh global pool
// seeded with the default style.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		global: NewStylePool(),
		remap:  make(map[string]map[StyleID]StyleID),
	}
}

// AddChapter interns chapterID's local style pool into the global pool,
// recording the local->global remap for use by RemapNode.
func (n *Normalizer) AddChapter(chapterID string, local *StylePool) {
	m := make(map[StyleID]StyleID, local.Len())
	for i := 0; i < local.Len(); i++ {
		localID := StyleID(i)
		m[localID] = n.global.Intern(local.Get(localID))
	}
	n.remap[chapterID] = m
}

// RemapNode returns a copy of tree with every node's Style field rewritten
// to its global id, recursing into children and inline runs.
func (n *Normalizer) RemapNode(chapterID string, root *Node) *Node {
	m := n.remap[chapterID]
	return remapNode(root, m)
}

func remapNode(src *Node, m map[StyleID]StyleID) *Node {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Style = m[src.Style]
	if len(src.Runs) > 0 {
		dst.Runs = make([]InlineRun, len(src.Runs))
		for i, r := range src.Runs {
			r.Style = m[r.Style]
			dst.Runs[i] = r
		}
	}
	if len(src.Children) > 0 {
		dst.Children = make([]*Node, len(src.Children))
		for i, c := range src.Children {
			dst.Children[i] = remapNode(c, m)
		}
	}
	return &dst
}

// GlobalPool returns the merged, deduplicated global style pool built
// across every chapter added so far.
func (n *Normalizer) GlobalPool() *StylePool { return n.global }
