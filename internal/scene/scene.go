// Package scene hands a built model graph to a scene-construction backend.
// The backend (a 3D application, a dry-run recorder) implements Constructor;
// Assemble drives it in a fixed order.
package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvp-joe/ldraw-import/internal/diag"
	"github.com/mvp-joe/ldraw-import/internal/ldraw"
	"github.com/mvp-joe/ldraw-import/internal/model"
	"github.com/mvp-joe/ldraw-import/internal/registry"
)

// PlaceholderPrefix prefixes the helper object standing in for a submodel instance.
const PlaceholderPrefix = "PL_"

// Result messages.
const (
	MsgImportSuccessful = "Import successful!"
	MsgNoParts          = "No parts to import"
	MsgCycleFallback    = "Submodel cycle detected; assembling in document order"
)

// PartPlacement places one instance of an imported asset.
type PartPlacement struct {
	Name      string          `json:"name" yaml:"name"`
	PartID    string          `json:"part_id" yaml:"part_id"`
	ColorID   string          `json:"color_id" yaml:"color_id"`
	Transform ldraw.Transform `json:"transform" yaml:"transform"`
	Parent    string          `json:"parent,omitempty" yaml:"parent,omitempty"` // helper name; empty for flat documents
}

// SubmodelPlacement places a placeholder for one submodel instance.
type SubmodelPlacement struct {
	Name      string          `json:"name" yaml:"name"`
	Source    string          `json:"source" yaml:"source"`
	Transform ldraw.Transform `json:"transform" yaml:"transform"`
	Parent    string          `json:"parent" yaml:"parent"`
}

// Constructor builds scene objects.
type Constructor interface {
	// ImportAsset brings a library asset into the scene once.
	ImportAsset(ctx context.Context, part registry.UniquePart) error

	// CreateHelper creates the grouping object for a model of an MPD.
	CreateHelper(ctx context.Context, name string) error

	PlacePart(ctx context.Context, p PartPlacement) error
	PlaceSubmodel(ctx context.Context, s SubmodelPlacement) error
}

// Options tunes Assemble.
type Options struct {
	// ScaleFactor multiplies every translation. Zero means 1.
	ScaleFactor float64
}

// Assemble imports every resolvable unique part once, then places the part
// and submodel instances of each model. For MPDs each model gets a helper and
// is assembled after the models it instances.
func Assemble(ctx context.Context, g *model.Graph, reg *registry.Registry, c Constructor, diags *diag.Collector, opts Options) error {
	if reg == nil || !reg.Validated() {
		return model.ErrNotValidated
	}
	scale := opts.ScaleFactor
	if scale == 0 {
		scale = 1
	}
	if diags == nil {
		diags = diag.NewCollector()
	}

	imported := 0
	for _, p := range reg.All() {
		if !p.Exists {
			continue
		}
		if err := c.ImportAsset(ctx, p); err != nil {
			return fmt.Errorf("failed to import %s: %w", p.ID, err)
		}
		imported++
	}
	if imported == 0 {
		diags.Add(diag.Result, MsgNoParts)
	} else {
		diags.Add(diag.Result, MsgImportSuccessful)
	}

	if !g.IsMPD() {
		return assembleModel(ctx, g, 0, "", c, diags, scale)
	}

	order, err := g.AssemblyOrder()
	if errors.Is(err, model.ErrSubmodelCycle) {
		diags.Add(diag.Result, MsgCycleFallback)
		order = g.Models()
	} else if err != nil {
		return err
	}

	for _, id := range order {
		name := g.Model(id).Name
		if err := c.CreateHelper(ctx, name); err != nil {
			return fmt.Errorf("failed to create helper %s: %w", name, err)
		}
		if err := assembleModel(ctx, g, id, name, c, diags, scale); err != nil {
			return err
		}
	}
	return nil
}

func assembleModel(ctx context.Context, g *model.Graph, id model.ModelID, parent string, c Constructor, diags *diag.Collector, scale float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := g.Model(id)
	for _, p := range g.PartsOf(id) {
		err := c.PlacePart(ctx, PartPlacement{
			Name:      p.Name,
			PartID:    p.PartID,
			ColorID:   p.ColorID,
			Transform: scaled(p.Transform, scale),
			Parent:    parent,
		})
		if err != nil {
			return fmt.Errorf("failed to place %s: %w", p.Name, err)
		}
	}

	for _, s := range g.SubmodelsOf(id) {
		err := c.PlaceSubmodel(ctx, SubmodelPlacement{
			Name:      PlaceholderPrefix + s.Name,
			Source:    g.Model(s.Source).Name,
			Transform: scaled(s.Transform, scale),
			Parent:    m.Name,
		})
		if err != nil {
			return fmt.Errorf("failed to place %s: %w", s.Name, err)
		}
	}

	diags.Add(diag.Result, fmt.Sprintf("Assembly of \"%s\" successful", m.Name))
	return nil
}

func scaled(t ldraw.Transform, f float64) ldraw.Transform {
	t.Translation = t.Translation.Scale(f)
	return t
}
