package ldraw

import "strings"

// Line type tokens recognized by the classifier.
const (
	FileMarkerToken = "0 FILE"
	ReferenceToken  = "1"
)

// Asset suffixes that discriminate part references from submodel references.
const (
	PartSuffix     = ".dat"
	SubmodelSuffix = ".ldr"
)

// referenceFieldCount is the number of whitespace-delimited fields after the
// reference token: color, 3 position, 9 rotation, file reference.
const referenceFieldCount = 14

// RawLine is one line of an LDraw document.
type RawLine struct {
	Text string // line text without the trailing newline
	Pos  int    // 0-based line number in the source file
}

// Kind is the discriminator of a classified line.
type Kind int

const (
	KindIgnorable Kind = iota
	KindFileMarker
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindFileMarker:
		return "file-marker"
	case KindReference:
		return "reference"
	default:
		return "ignorable"
	}
}

// RefKind tells what a reference line points at.
type RefKind int

const (
	RefOther RefKind = iota
	RefPart
	RefSubmodel
)

// LineKind is the typed record produced by Classify.
//
// Only the fields matching Kind are populated: Name for file markers,
// ColorID/Fields/FileRef/RefID for references.
type LineKind struct {
	Kind Kind

	// Name is the model name captured from a "0 FILE" marker.
	Name string

	// ColorID is field 1 of a reference line, kept verbatim (direct colors
	// such as 0x2FF0000 are not numbers in the decimal sense).
	ColorID string

	// Fields holds fields 2-13: x y z a b c d e f g h i.
	Fields [12]string

	// FileRef is field 14, the referenced file including its extension.
	FileRef string

	// RefID is FileRef up to its first dot: the part ID or model name.
	RefID string
}

// Ref reports whether a reference line names a part or a submodel.
func (l LineKind) Ref() RefKind {
	if l.Kind != KindReference {
		return RefOther
	}
	lower := strings.ToLower(l.FileRef)
	switch {
	case strings.HasSuffix(lower, PartSuffix):
		return RefPart
	case strings.HasSuffix(lower, SubmodelSuffix):
		return RefSubmodel
	default:
		return RefOther
	}
}

// Vec3 is a 3-component vector.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Scale returns v multiplied by f.
func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// Transform is an affine placement: a 3x3 rotation/scale block stored as rows
// plus a translation.
type Transform struct {
	Rows        [3]Vec3 `json:"rows" yaml:"rows"`
	Translation Vec3    `json:"translation" yaml:"translation"`
}
