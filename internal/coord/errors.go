package coord

import "fmt"

// ErrMissingProjectionKey indicates a required geokey is absent from the
// key directory, or its stored index falls outside the double-params block.
type ErrMissingProjectionKey struct {
	Key   uint16
	Index int // resolved index, -1 when the key itself is absent
}

func (e *ErrMissingProjectionKey) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("projection key %d missing from geokey directory", e.Key)
	}
	return fmt.Sprintf("projection key %d: index %d out of range of double params", e.Key, e.Index)
}

// ErrMalformedKeyDirectory indicates the geokey directory length is not a
// multiple of the 4-value record size.
type ErrMalformedKeyDirectory struct {
	Length int
}

func (e *ErrMalformedKeyDirectory) Error() string {
	return fmt.Sprintf("geokey directory length %d is not a multiple of 4", e.Length)
}

// ErrUnsupportedGeoreferencing indicates the tags carry neither a
// pixel-scale/tiepoint pair nor a transformation matrix.
type ErrUnsupportedGeoreferencing struct {
	Reason string
}

func (e *ErrUnsupportedGeoreferencing) Error() string {
	return fmt.Sprintf("unsupported georeferencing: %s", e.Reason)
}

// ErrDegenerateProjection indicates the extracted parameters make the
// Lambert cone constants undefined (equal standard parallels, a parallel
// at a pole, or a zero pixel resolution).
type ErrDegenerateProjection struct {
	Reason string
}

func (e *ErrDegenerateProjection) Error() string {
	return fmt.Sprintf("degenerate projection: %s", e.Reason)
}
