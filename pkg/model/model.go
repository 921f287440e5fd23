// Package model defines the layered rotating-ellipsoid model that the GPU
// search operates on.
//
// A Model is an ordered stack of at most MaxLayers ellipsoidal shells plus an
// angular-momentum scalar. Each Layer carries three semi-axes (a, b, c), an
// equivalent-volume radius r = cbrt(a*b*c), and a density. Models are
// validated once at construction and treated as immutable values afterwards;
// every round trip through the device produces a fresh Model rather than
// mutating an existing one.
//
// The Outputs block holds the scalars derived by a device evaluation. They
// are zero until a kernel has populated them.
package model

import (
	"errors"
	"fmt"
	"math"
)

// MaxLayers is the fixed layer capacity of the device-side record. The
// kernel declares a fixed-size array of this many layer slots, so the host
// must never serialize more.
const MaxLayers = 20

// radiusRTol is the relative tolerance used to check that supplied semi-axes
// and volumetric radius describe the same shell.
const radiusRTol = 1e-8

// Errors
var (
	ErrLayerShape        = errors.New("model: layer must supply semi-axes or a volumetric radius")
	ErrLayerInconsistent = errors.New("model: semi-axes and volumetric radius are inconsistent")
	ErrLayerCapacity     = errors.New("model: layer count exceeds device capacity")
)

// Layer is one shell of the model.
type Layer struct {
	A       float64 // semi-axis along x
	B       float64 // semi-axis along y
	C       float64 // semi-axis along z
	R       float64 // equivalent-volume radius, cbrt(A*B*C)
	Density float64
}

// LayerFromAxes builds a layer from its three semi-axes, deriving the
// volumetric radius.
func LayerFromAxes(a, b, c, density float64) Layer {
	return Layer{A: a, B: b, C: c, R: math.Cbrt(a * b * c), Density: density}
}

// LayerFromRadius builds a spherical layer of the given volumetric radius.
func LayerFromRadius(r, density float64) Layer {
	return Layer{A: r, B: r, C: r, R: r, Density: density}
}

// LayerFromAxesAndRadius builds a layer from semi-axes plus an explicitly
// supplied volumetric radius. The two must agree within relative tolerance
// 1e-8; disagreement is a validation error, not a warning.
func LayerFromAxesAndRadius(a, b, c, r, density float64) (Layer, error) {
	l := Layer{A: a, B: b, C: c, R: r, Density: density}
	if err := l.Check(); err != nil {
		return Layer{}, err
	}
	return l, nil
}

// Check verifies the radius/semi-axes invariant: r == cbrt(a*b*c) within
// relative tolerance 1e-8.
func (l Layer) Check() error {
	r := math.Cbrt(l.A * l.B * l.C)
	if l.R == 0 {
		return fmt.Errorf("%w: volumetric radius is zero (axes give %g)", ErrLayerInconsistent, r)
	}
	if math.Abs(r-l.R)/math.Abs(l.R) > radiusRTol {
		return fmt.Errorf("%w: cbrt(%g*%g*%g)=%g vs r=%g", ErrLayerInconsistent, l.A, l.B, l.C, r, l.R)
	}
	return nil
}

// Outputs holds the scalars a device evaluation derives for a model. The
// field set and order mirror the record trailer (see pkg/record).
type Outputs struct {
	RelEquipotentialErr float64
	TotalEnergy         float64
	AngularVelocity     float64
	MomentOfInertia     float64
	PotentialEnergy     float64
	KineticEnergy       float64
	VirialRatio         float64
	Sentinel            float64 // fixed layout-verification constant written by the kernel
	Score               float64 // search objective, lower is better
}

// Model is the full layered body description plus derived scalars.
type Model struct {
	AngularMomentum float64
	Layers          []Layer
	Outputs         Outputs
}

// New validates the layers and builds a Model. More than MaxLayers layers, or
// any layer violating the radius invariant, is a fatal validation error.
func New(angularMomentum float64, layers []Layer) (*Model, error) {
	if len(layers) > MaxLayers {
		return nil, fmt.Errorf("%w: %d layers, capacity %d", ErrLayerCapacity, len(layers), MaxLayers)
	}
	for i, l := range layers {
		if err := l.Check(); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	m := &Model{AngularMomentum: angularMomentum, Layers: make([]Layer, len(layers))}
	copy(m.Layers, layers)
	return m, nil
}

// NumLayers returns the active layer count.
func (m *Model) NumLayers() int {
	return len(m.Layers)
}
