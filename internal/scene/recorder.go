package scene

import (
	"context"
	"sync"

	"github.com/mvp-joe/ldraw-import/internal/registry"
)

// OpKind names a Constructor call.
type OpKind string

const (
	OpImportAsset   OpKind = "import"
	OpCreateHelper  OpKind = "helper"
	OpPlacePart     OpKind = "part"
	OpPlaceSubmodel OpKind = "submodel"
)

// Op is one recorded Constructor call. Exactly one payload field is set.
type Op struct {
	Kind     OpKind               `json:"op" yaml:"op"`
	Asset    *registry.UniquePart `json:"asset,omitempty" yaml:"asset,omitempty"`
	Helper   string               `json:"helper,omitempty" yaml:"helper,omitempty"`
	Part     *PartPlacement       `json:"part,omitempty" yaml:"part,omitempty"`
	Submodel *SubmodelPlacement   `json:"submodel,omitempty" yaml:"submodel,omitempty"`
}

// Recorder is a Constructor that records calls instead of building a scene.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ImportAsset(_ context.Context, part registry.UniquePart) error {
	r.record(Op{Kind: OpImportAsset, Asset: &part})
	return nil
}

func (r *Recorder) CreateHelper(_ context.Context, name string) error {
	r.record(Op{Kind: OpCreateHelper, Helper: name})
	return nil
}

func (r *Recorder) PlacePart(_ context.Context, p PartPlacement) error {
	r.record(Op{Kind: OpPlacePart, Part: &p})
	return nil
}

func (r *Recorder) PlaceSubmodel(_ context.Context, s SubmodelPlacement) error {
	r.record(Op{Kind: OpPlaceSubmodel, Submodel: &s})
	return nil
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// Ops returns the recorded calls in order.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Count returns how many calls of kind were recorded.
func (r *Recorder) Count(kind OpKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, op := range r.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}
