// Package model builds the model graph of an LDraw document: models, the part
// instances they place and the submodel instances linking them.
package model

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/ldraw-import/internal/ldraw"
	"github.com/mvp-joe/ldraw-import/internal/registry"
)

// ErrNotValidated is returned when the registry has not completed a pass.
var ErrNotValidated = errors.New("parts have not been validated")

// Build partitions doc into models and populates them with part and
// submodel instances. Parts are created only for IDs the registry marks
// resolvable; submodels only for names defined by a "0 FILE" marker.
func Build(doc *ldraw.Document, reg *registry.Registry) (*Graph, error) {
	if reg == nil || !reg.Validated() {
		return nil, ErrNotValidated
	}

	b := &builder{
		doc:           doc,
		reg:           reg,
		graph:         newGraph(doc.IsMPD()),
		partCounts:    make(map[string]int),
		submodelCount: make(map[string]int),
	}

	if doc.IsMPD() {
		b.buildMPD()
	} else {
		b.buildFlat()
	}

	return b.graph, nil
}

type builder struct {
	doc   *ldraw.Document
	reg   *registry.Registry
	graph *Graph

	// Sequence counters are global per base name, never reset per model.
	partCounts    map[string]int
	submodelCount map[string]int

	// markerLine maps a model name to the first "0 FILE" line declaring it.
	markerLine map[string]int
}

func (b *builder) buildMPD() {
	b.markerLine = make(map[string]int)
	for i := 0; i < b.doc.Len(); i++ {
		k := b.doc.Kind(i)
		if k.Kind != ldraw.KindFileMarker {
			continue
		}
		if _, seen := b.markerLine[k.Name]; !seen {
			b.markerLine[k.Name] = i
		}
		b.graph.addModel(k.Name, i)
	}

	for id := range b.graph.models {
		mid := ModelID(id)
		name := b.graph.models[id].Name
		start := b.markerLine[name]

		// The marker itself is skipped; the segment ends at the next marker.
		for i := start + 1; i < b.doc.Len(); i++ {
			k := b.doc.Kind(i)
			if k.Kind == ldraw.KindFileMarker {
				break
			}
			if k.Kind != ldraw.KindReference {
				continue
			}
			switch k.Ref() {
			case ldraw.RefPart:
				b.addPart(mid, i, k)
			case ldraw.RefSubmodel:
				b.addSubmodel(mid, i, k)
			default:
				b.drop(mid, i, k, DropUnknownReference)
			}
		}
	}
}

func (b *builder) buildFlat() {
	main := b.graph.addModel(MainModelName, -1)
	for i := 0; i < b.doc.Len(); i++ {
		k := b.doc.Kind(i)
		if k.Kind != ldraw.KindReference {
			continue
		}
		switch k.Ref() {
		case ldraw.RefPart:
			b.addPart(main, i, k)
		case ldraw.RefSubmodel:
			b.drop(main, i, k, DropSubmodelInFlat)
		default:
			b.drop(main, i, k, DropUnknownReference)
		}
	}
}

func (b *builder) addPart(mid ModelID, line int, k ldraw.LineKind) {
	if !b.reg.Resolvable(k.RefID) {
		b.drop(mid, line, k, DropUnresolvedPart)
		return
	}
	b.partCounts[k.RefID]++
	b.graph.addPart(Part{
		Name:      instanceName(k.RefID, b.partCounts[k.RefID]),
		PartID:    k.RefID,
		ColorID:   k.ColorID,
		Transform: ldraw.ExtractTransform(k),
		Model:     mid,
		Line:      line,
	})
}

func (b *builder) addSubmodel(mid ModelID, line int, k ldraw.LineKind) {
	source, ok := b.graph.ModelByName(k.RefID)
	if !ok {
		b.drop(mid, line, k, DropUndefinedModel)
		return
	}
	b.submodelCount[k.RefID]++
	b.graph.addSubmodel(Submodel{
		Name:      instanceName(k.RefID, b.submodelCount[k.RefID]),
		Transform: ldraw.ExtractTransform(k),
		Source:    source,
		Parent:    mid,
		Line:      line,
	})
}

func (b *builder) drop(mid ModelID, line int, k ldraw.LineKind, reason DropReason) {
	b.graph.Dropped = append(b.graph.Dropped, DroppedRef{
		Line:   line,
		Model:  b.graph.models[mid].Name,
		Ref:    k.FileRef,
		Reason: reason,
	})
}

// instanceName formats {base}_{NNN} with a left-zero-padded sequence.
func instanceName(base string, seq int) string {
	return fmt.Sprintf("%s_%03d", base, seq)
}
