package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayerFromAxes(t *testing.T) {
	l := LayerFromAxes(1, 2, 4, 1.5)
	assert.InDelta(t, 2.0, l.R, 1e-12, "cbrt(1*2*4) = 2")
	assert.NoError(t, l.Check())
}

func TestLayerFromRadius(t *testing.T) {
	l := LayerFromRadius(3, 1)
	assert.Equal(t, 3.0, l.A)
	assert.Equal(t, 3.0, l.B)
	assert.Equal(t, 3.0, l.C)
	assert.Equal(t, 3.0, l.R)
	assert.NoError(t, l.Check())
}

func TestLayerFromAxesAndRadius(t *testing.T) {
	l, err := LayerFromAxesAndRadius(1, 1, 1, 1, 1)
	require.NoError(t, err)
	assert.NoError(t, l.Check())

	_, err = LayerFromAxesAndRadius(1, 2, 4, 3, 1)
	assert.ErrorIs(t, err, ErrLayerInconsistent)
}

func TestLayerCheckTolerance(t *testing.T) {
	// Within rtol 1e-8 passes, outside fails.
	r := math.Cbrt(1.0 * 2.0 * 4.0)
	inside := Layer{A: 1, B: 2, C: 4, R: r * (1 + 1e-9), Density: 1}
	assert.NoError(t, inside.Check())

	outside := Layer{A: 1, B: 2, C: 4, R: r * (1 + 1e-6), Density: 1}
	assert.ErrorIs(t, outside.Check(), ErrLayerInconsistent)
}

func TestNewCapacity(t *testing.T) {
	layers := make([]Layer, MaxLayers)
	for i := range layers {
		layers[i] = LayerFromRadius(float64(i+1), 1)
	}
	m, err := New(0, layers)
	require.NoError(t, err)
	assert.Equal(t, MaxLayers, m.NumLayers())

	layers = append(layers, LayerFromRadius(21, 1))
	_, err = New(0, layers)
	assert.ErrorIs(t, err, ErrLayerCapacity)
}

func TestNewValidatesLayers(t *testing.T) {
	_, err := New(0, []Layer{{A: 1, B: 1, C: 1, R: 2, Density: 1}})
	assert.ErrorIs(t, err, ErrLayerInconsistent)
}

func TestNewCopiesLayers(t *testing.T) {
	layers := []Layer{LayerFromRadius(1, 1)}
	m, err := New(0, layers)
	require.NoError(t, err)

	layers[0].Density = 99
	assert.Equal(t, 1.0, m.Layers[0].Density)
}

func TestDocumentRoundTrip(t *testing.T) {
	m, err := New(4.01, []Layer{
		LayerFromAxes(0.99, 1.0, 1.01, 1.05),
		LayerFromAxes(1.98, 2.0, 2.02, 2.10),
	})
	require.NoError(t, err)
	m.Outputs.RelEquipotentialErr = 1e-6
	m.Outputs.TotalEnergy = -3.5

	data, err := m.MarshalJSON()
	require.NoError(t, err)

	var back Model
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, m.AngularMomentum, back.AngularMomentum)
	assert.Equal(t, m.Layers, back.Layers)
	assert.Equal(t, m.Outputs.RelEquipotentialErr, back.Outputs.RelEquipotentialErr)
	assert.Equal(t, m.Outputs.TotalEnergy, back.Outputs.TotalEnergy)
}

func TestUnmarshalShapes(t *testing.T) {
	var m Model
	require.NoError(t, m.UnmarshalJSON([]byte(`{
		"angular_momentum": 0,
		"layers": [
			{"abc": [1, 2, 4], "density": 1},
			{"r": 3, "density": 2},
			{"abc": [1, 1, 1], "r": 1, "density": 3}
		]
	}`)))
	require.Len(t, m.Layers, 3)
	assert.InDelta(t, 2.0, m.Layers[0].R, 1e-12)
	assert.Equal(t, Layer{A: 3, B: 3, C: 3, R: 3, Density: 2}, m.Layers[1])

	err := m.UnmarshalJSON([]byte(`{"angular_momentum": 0, "layers": [{"density": 1}]}`))
	assert.ErrorIs(t, err, ErrLayerShape)

	err = m.UnmarshalJSON([]byte(`{"angular_momentum": 0, "layers": [{"abc": [1, 2, 4], "r": 3, "density": 1}]}`))
	assert.ErrorIs(t, err, ErrLayerInconsistent)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	doc := `{"angular_momentum": 0.5, "layers": [{"abc": [1, 1, 1], "density": 1}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, m.AngularMomentum)
	require.Len(t, m.Layers, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
