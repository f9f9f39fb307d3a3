package ldraw

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineSize bounds a single line; LDraw lines are short, but META comments
// embedded by some editors can be long.
const maxLineSize = 1 << 20

// Document is an immutable, classified LDraw file.
type Document struct {
	// Path is the file the document was loaded from (empty for Parse).
	Path string

	lines []RawLine
	kinds []LineKind
	mpd   bool
}

// Load reads and classifies the file at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse reads and classifies a document. The MPD flag is decided here, once:
// a document is multi-part iff it contains at least one "0 FILE" line.
func Parse(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	doc := &Document{}
	pos := 0
	for scanner.Scan() {
		text := scanner.Text()
		if pos == 0 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		line := RawLine{Text: text, Pos: pos}
		kind := Classify(line)
		if kind.Kind == KindFileMarker {
			doc.mpd = true
		}
		doc.lines = append(doc.lines, line)
		doc.kinds = append(doc.kinds, kind)
		pos++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// IsMPD reports whether the document is a Multi-Part Document.
func (d *Document) IsMPD() bool { return d.mpd }

// Len returns the number of lines.
func (d *Document) Len() int { return len(d.lines) }

// Line returns the raw line at index i.
func (d *Document) Line(i int) RawLine { return d.lines[i] }

// Kind returns the classification of line i.
func (d *Document) Kind(i int) LineKind { return d.kinds[i] }

// Relevant counts file markers and references, the lines the pipeline consumes.
func (d *Document) Relevant() int {
	n := 0
	for _, k := range d.kinds {
		if k.Kind != KindIgnorable {
			n++
		}
	}
	return n
}

// PartRefs returns the part IDs of every part reference, in document order.
func (d *Document) PartRefs() []string {
	var ids []string
	for _, k := range d.kinds {
		if k.Ref() == RefPart {
			ids = append(ids, k.RefID)
		}
	}
	return ids
}
