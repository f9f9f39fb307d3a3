package ldraw

import (
	"strconv"
	"strings"
)

// Classify turns a raw line into a LineKind. It never fails: lines that do not
// have the shape of a file marker or a complete reference are Ignorable.
func Classify(line RawLine) LineKind {
	text := strings.TrimRight(line.Text, " \t\r")

	if strings.HasPrefix(text, FileMarkerToken) {
		return LineKind{Kind: KindFileMarker, Name: markerName(text)}
	}

	if ref, ok := classifyReference(text); ok {
		return ref
	}

	return LineKind{Kind: KindIgnorable}
}

// IsFileMarker reports whether the line starts a named model definition.
func IsFileMarker(text string) bool {
	return strings.HasPrefix(text, FileMarkerToken)
}

// markerName extracts "<name>" from "0 FILE <name>.<ext>".
func markerName(text string) string {
	rest := strings.TrimPrefix(text, FileMarkerToken)
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func classifyReference(text string) (LineKind, bool) {
	rest, ok := strings.CutPrefix(text, ReferenceToken)
	if !ok || rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return LineKind{}, false
	}

	// The first 13 fields are single tokens; the file reference is the rest
	// of the line, which may contain spaces.
	var out LineKind
	out.Kind = KindReference
	for i := 0; i < referenceFieldCount-1; i++ {
		var field string
		field, rest = nextField(rest)
		if field == "" {
			return LineKind{}, false
		}
		if i == 0 {
			out.ColorID = field
		} else {
			out.Fields[i-1] = field
		}
	}

	out.FileRef = strings.TrimSpace(rest)
	if out.FileRef == "" {
		return LineKind{}, false
	}
	out.RefID = out.FileRef
	if i := strings.IndexByte(out.RefID, '.'); i >= 0 {
		out.RefID = out.RefID[:i]
	}
	if out.RefID == "" {
		return LineKind{}, false
	}

	return out, true
}

// nextField returns the next whitespace-delimited token and the remainder.
func nextField(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	end := strings.IndexAny(s, " \t")
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}

// ExtractTransform maps the numeric fields of a reference line onto a
// Transform. Each field is parsed independently; a field that fails to parse
// contributes 0.
func ExtractTransform(l LineKind) Transform {
	f := func(i int) float64 { return parseFloat(l.Fields[i]) }
	return Transform{
		Translation: Vec3{X: f(0), Y: f(1), Z: f(2)},
		Rows: [3]Vec3{
			{X: f(3), Y: f(4), Z: f(5)},
			{X: f(6), Y: f(7), Z: f(8)},
			{X: f(9), Y: f(10), Z: f(11)},
		},
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
