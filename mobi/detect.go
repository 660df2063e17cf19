package mobi

// FormatKind distinguishes the three MOBI-family variants.
type FormatKind int

const (
	FormatMobi6 FormatKind = iota
	FormatKF8Pure
	FormatKF8Combo
)

// Detect classifies a parsed header and, for combo files, locates the
// record index where the KF8 header begins.
func Detect(h *Header, recordAt func(idx int) ([]byte, error)) (FormatKind, int, error) {
	if h.IsKF8() {
		return FormatKF8Pure, 0, nil
	}
	if boundary, ok := h.KF8BoundaryRecord(); ok {
		idx := int(boundary)
		prev, err := recordAt(idx - 1)
		if err == nil && len(prev) >= 8 && string(prev[:8]) == "BOUNDARY" {
			return FormatKF8Combo, idx, nil
		}
	}
	return FormatMobi6, 0, nil
}
