package domain

import (
	"strings"
	"testing"
)

func hasPathError(r Result, path string) bool {
	for _, e := range r.Errors {
		if e.Path == path {
			return true
		}
	}
	return false
}

func TestValidateTransformFieldPaths(t *testing.T) {
	if r := ValidateTransform(IdentityTransform()); !r.OK() {
		t.Fatalf("identity transform should validate: %v", r.Errors)
	}
	bad := Transform{Scale: Point{X: 0, Y: -5}, Rotation: 400, Pivot: Point{X: -0.1, Y: 2}}
	r := ValidateTransform(bad)
	for _, path := range []string{"scale.x", "scale.y", "rotation", "pivot.x", "pivot.y"} {
		if !hasPathError(r, path) {
			t.Fatalf("missing error for %s: %v", path, r.Errors)
		}
	}
}

func TestValidateCropRegion(t *testing.T) {
	ok := CropRegion{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	if r := ValidateCropRegion(ok); !r.OK() {
		t.Fatalf("valid crop rejected: %v", r.Errors)
	}
	r := ValidateCropRegion(CropRegion{X: 0.75, Y: 0, Width: 0.5, Height: 0.005})
	if !hasPathError(r, "width") {
		t.Fatalf("expected overflow error on width: %v", r.Errors)
	}
	if !hasPathError(r, "height") {
		t.Fatalf("expected minimum size error on height: %v", r.Errors)
	}
}

func TestValidateGridVersionField(t *testing.T) {
	g := NewGridConfiguration("p1")
	g.Version = "1"
	r := ValidateGrid(g)
	if r.OK() {
		t.Fatalf("grid with version %q should fail", g.Version)
	}
	if !hasPathError(r, "version") {
		t.Fatalf("expected an error referencing version, got %v", r.Errors)
	}
}

func TestValidateGridPanelCount(t *testing.T) {
	g := NewGridConfiguration("p1")
	g.Panels = g.Panels[:8]
	if r := ValidateGrid(g); !hasPathError(r, "panels") {
		t.Fatalf("expected panel count error, got %v", r.Errors)
	}
}

func TestValidateGridNestedPaths(t *testing.T) {
	g := NewGridConfiguration("p1")
	g.Panels[3].Transform.Scale.X = 0
	r := ValidateGrid(g)
	if !hasPathError(r, "panels[3].transform.scale.x") {
		t.Fatalf("expected nested path error, got %v", r.Errors)
	}
}

func TestValidateGridDuplicatePositions(t *testing.T) {
	g := NewGridConfiguration("p1")
	g.Panels[8] = g.Panels[0]
	if r := ValidateGrid(g); !hasPathError(r, "panels") {
		t.Fatalf("expected duplicate position error, got %v", r.Errors)
	}
}

func TestValidatePresetArity(t *testing.T) {
	p := Preset{
		ID:              "pr-1",
		Name:            "Eight",
		PanelTransforms: make([]Transform, 8),
		PanelCrops:      make([]*CropRegion, PanelCount),
	}
	r := ValidatePreset(p)
	if !hasPathError(r, "panelTransforms") {
		t.Fatalf("expected arity error, got %v", r.Errors)
	}
}

func TestValidateLayer(t *testing.T) {
	l := NewImageLayer("a", "x.png", 0, 0)
	l.Content.Image = nil
	if r := ValidateLayer(l); !hasPathError(r, "content") {
		t.Fatalf("expected content mismatch error, got %v", r.Errors)
	}
	l2 := NewAnnotationLayer("n")
	l2.Opacity = 1.5
	if r := ValidateLayer(l2); !hasPathError(r, "opacity") {
		t.Fatalf("expected opacity error, got %v", r.Errors)
	}
	l3 := NewImageLayer("a", "x.png", 0, 0)
	l3.BlendMode = "dissolve"
	if r := ValidateLayer(l3); !hasPathError(r, "blendMode") {
		t.Fatalf("expected blend mode error, got %v", r.Errors)
	}
}

func TestResultErr(t *testing.T) {
	var r Result
	if r.Err() != nil {
		t.Fatalf("empty result should have nil Err")
	}
	r.addf("version", "must match MAJOR.MINOR")
	err := r.Err()
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Fatalf("Err() should mention the field path: %v", err)
	}
}
