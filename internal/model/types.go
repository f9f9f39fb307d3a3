package model

import "github.com/mvp-joe/ldraw-import/internal/ldraw"

// MainModelName names the single model of a non-MPD document.
const MainModelName = "Main"

// ModelID, PartRef and SubmodelRef are stable indices into a Graph's arenas.
type (
	ModelID     int
	PartRef     int
	SubmodelRef int
)

// Model is one model definition: the whole file for flat documents, or one
// "0 FILE" section of an MPD.
type Model struct {
	Name      string
	Line      int // index of the "0 FILE" line; -1 for the implicit Main model
	Parts     []PartRef
	Submodels []SubmodelRef
}

// HasSubmodels reports whether the model instances any other model.
func (m *Model) HasSubmodels() bool { return len(m.Submodels) > 0 }

// Part is a placed instance of a library part.
type Part struct {
	Name      string // {partID}_{NNN}, unique across the document
	PartID    string
	ColorID   string
	Transform ldraw.Transform
	Model     ModelID // owning model
	Line      int
}

// Submodel is a placed instance of another model of the same document.
type Submodel struct {
	Name      string // {sourceName}_{NNN}, unique across the document
	Transform ldraw.Transform
	Source    ModelID // model definition being instanced
	Parent    ModelID // model containing the reference
	Line      int
}

// DropReason explains why a reference line produced no instance.
type DropReason string

const (
	DropUnresolvedPart   DropReason = "unresolved-part"
	DropUndefinedModel   DropReason = "undefined-model"
	DropSubmodelInFlat   DropReason = "submodel-in-flat-file"
	DropUnknownReference DropReason = "unknown-reference"
)

// DroppedRef records a reference that was intentionally left out of the graph.
type DroppedRef struct {
	Line   int        `json:"line" yaml:"line"`
	Model  string     `json:"model" yaml:"model"`
	Ref    string     `json:"ref" yaml:"ref"`
	Reason DropReason `json:"reason" yaml:"reason"`
}
