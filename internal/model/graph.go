package model

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dominikbraun/graph"
)

// ErrSubmodelCycle indicates models that instance each other.
var ErrSubmodelCycle = errors.New("submodel cycle")

// Graph owns every model, part and submodel of one document. Instances refer
// to models by ModelID rather than by pointer.
type Graph struct {
	mpd       bool
	models    []Model
	parts     []Part
	submodels []Submodel
	byName    map[string]ModelID

	// Dropped lists reference lines that produced no instance, in the order
	// they were encountered.
	Dropped []DroppedRef
}

func newGraph(mpd bool) *Graph {
	return &Graph{mpd: mpd, byName: make(map[string]ModelID)}
}

func (g *Graph) addModel(name string, line int) ModelID {
	id := ModelID(len(g.models))
	g.models = append(g.models, Model{Name: name, Line: line})
	if _, seen := g.byName[name]; !seen {
		g.byName[name] = id
	}
	return id
}

func (g *Graph) addPart(p Part) PartRef {
	ref := PartRef(len(g.parts))
	g.parts = append(g.parts, p)
	g.models[p.Model].Parts = append(g.models[p.Model].Parts, ref)
	return ref
}

func (g *Graph) addSubmodel(s Submodel) SubmodelRef {
	ref := SubmodelRef(len(g.submodels))
	g.submodels = append(g.submodels, s)
	g.models[s.Parent].Submodels = append(g.models[s.Parent].Submodels, ref)
	return ref
}

// IsMPD reports whether the graph was built from a Multi-Part Document.
func (g *Graph) IsMPD() bool { return g.mpd }

// NumModels returns the number of models.
func (g *Graph) NumModels() int { return len(g.models) }

// NumParts returns the number of part instances.
func (g *Graph) NumParts() int { return len(g.parts) }

// NumSubmodels returns the number of submodel instances.
func (g *Graph) NumSubmodels() int { return len(g.submodels) }

// Model returns the model with the given ID.
func (g *Graph) Model(id ModelID) *Model { return &g.models[id] }

// Part returns the part instance with the given handle.
func (g *Graph) Part(ref PartRef) *Part { return &g.parts[ref] }

// Submodel returns the submodel instance with the given handle.
func (g *Graph) Submodel(ref SubmodelRef) *Submodel { return &g.submodels[ref] }

// ModelByName returns the first model with the given name.
func (g *Graph) ModelByName(name string) (ModelID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// Models returns every model ID in first-seen order.
func (g *Graph) Models() []ModelID {
	ids := make([]ModelID, len(g.models))
	for i := range g.models {
		ids[i] = ModelID(i)
	}
	return ids
}

// PartsOf returns the part instances of a model in document order.
func (g *Graph) PartsOf(id ModelID) []Part {
	refs := g.models[id].Parts
	out := make([]Part, len(refs))
	for i, ref := range refs {
		out[i] = g.parts[ref]
	}
	return out
}

// SubmodelsOf returns the submodel instances of a model in document order.
func (g *Graph) SubmodelsOf(id ModelID) []Submodel {
	refs := g.models[id].Submodels
	out := make([]Submodel, len(refs))
	for i, ref := range refs {
		out[i] = g.submodels[ref]
	}
	return out
}

// AllParts returns every part instance in creation order.
func (g *Graph) AllParts() []Part {
	out := make([]Part, len(g.parts))
	copy(out, g.parts)
	return out
}

// AllSubmodels returns every submodel instance in creation order.
func (g *Graph) AllSubmodels() []Submodel {
	out := make([]Submodel, len(g.submodels))
	copy(out, g.submodels)
	return out
}

// AssemblyOrder returns the models ordered so that every model comes after
// all models it instances. Ties keep first-seen order. Models that instance
// each other, directly or not, yield ErrSubmodelCycle.
func (g *Graph) AssemblyOrder() ([]ModelID, error) {
	deps := graph.New(func(id ModelID) string { return strconv.Itoa(int(id)) }, graph.Directed(), graph.PreventCycles())

	for _, id := range g.Models() {
		if err := deps.AddVertex(id); err != nil {
			return nil, fmt.Errorf("failed to add model %s: %w", g.models[id].Name, err)
		}
	}

	// Edge source → parent: the source must be assembled first.
	for _, s := range g.submodels {
		if s.Source == s.Parent {
			return nil, fmt.Errorf("%w: %s instances itself", ErrSubmodelCycle, g.models[s.Parent].Name)
		}
		from, to := strconv.Itoa(int(s.Source)), strconv.Itoa(int(s.Parent))
		err := deps.AddEdge(from, to)
		switch {
		case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		case errors.Is(err, graph.ErrEdgeCreatesCycle):
			return nil, fmt.Errorf("%w: %s instances %s", ErrSubmodelCycle, g.models[s.Parent].Name, g.models[s.Source].Name)
		default:
			return nil, fmt.Errorf("failed to link %s to %s: %w", g.models[s.Source].Name, g.models[s.Parent].Name, err)
		}
	}

	order, err := graph.StableTopologicalSort(deps, func(a, b string) bool {
		ai, _ := strconv.Atoi(a)
		bi, _ := strconv.Atoi(b)
		return ai < bi
	})
	if err != nil {
		return nil, fmt.Errorf("failed to order models: %w", err)
	}

	out := make([]ModelID, len(order))
	for i, key := range order {
		n, _ := strconv.Atoi(key)
		out[i] = ModelID(n)
	}
	return out, nil
}
