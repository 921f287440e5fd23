package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// layerDoc is the persisted/exchanged form of one layer. A document may
// supply "abc", "r", or both; both must be mutually consistent.
type layerDoc struct {
	ABC     *[3]float64 `json:"abc,omitempty"`
	R       *float64    `json:"r,omitempty"`
	Density float64     `json:"density"`
}

// modelDoc is the persisted/exchanged form of a model. Output fields are
// present only after a device evaluation has populated them.
type modelDoc struct {
	AngularMomentum     float64    `json:"angular_momentum"`
	Layers              []layerDoc `json:"layers"`
	RelEquipotentialErr float64    `json:"rel_equipotential_err,omitempty"`
	TotalEnergy         float64    `json:"total_energy,omitempty"`
	AngularVelocity     float64    `json:"angular_velocity,omitempty"`
	MomentOfInertia     float64    `json:"moment_of_inertia,omitempty"`
	PotentialEnergy     float64    `json:"potential_energy,omitempty"`
	KineticEnergy       float64    `json:"kinetic_energy,omitempty"`
	VirialRatio         float64    `json:"virial_ratio,omitempty"`
	Score               float64    `json:"score,omitempty"`
}

// MarshalJSON renders the model in the document format.
func (m *Model) MarshalJSON() ([]byte, error) {
	doc := modelDoc{
		AngularMomentum:     m.AngularMomentum,
		Layers:              make([]layerDoc, len(m.Layers)),
		RelEquipotentialErr: m.Outputs.RelEquipotentialErr,
		TotalEnergy:         m.Outputs.TotalEnergy,
		AngularVelocity:     m.Outputs.AngularVelocity,
		MomentOfInertia:     m.Outputs.MomentOfInertia,
		PotentialEnergy:     m.Outputs.PotentialEnergy,
		KineticEnergy:       m.Outputs.KineticEnergy,
		VirialRatio:         m.Outputs.VirialRatio,
		Score:               m.Outputs.Score,
	}
	for i, l := range m.Layers {
		abc := [3]float64{l.A, l.B, l.C}
		r := l.R
		doc.Layers[i] = layerDoc{ABC: &abc, R: &r, Density: l.Density}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON parses the document format, running full construction
// validation (shape parameters, radius consistency, layer capacity).
func (m *Model) UnmarshalJSON(data []byte) error {
	var doc modelDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("model: invalid document: %w", err)
	}
	layers := make([]Layer, 0, len(doc.Layers))
	for i, ld := range doc.Layers {
		var l Layer
		switch {
		case ld.ABC != nil && ld.R != nil:
			var err error
			l, err = LayerFromAxesAndRadius(ld.ABC[0], ld.ABC[1], ld.ABC[2], *ld.R, ld.Density)
			if err != nil {
				return fmt.Errorf("layer %d: %w", i, err)
			}
		case ld.ABC != nil:
			l = LayerFromAxes(ld.ABC[0], ld.ABC[1], ld.ABC[2], ld.Density)
		case ld.R != nil:
			l = LayerFromRadius(*ld.R, ld.Density)
		default:
			return fmt.Errorf("layer %d: %w", i, ErrLayerShape)
		}
		layers = append(layers, l)
	}
	built, err := New(doc.AngularMomentum, layers)
	if err != nil {
		return err
	}
	built.Outputs = Outputs{
		RelEquipotentialErr: doc.RelEquipotentialErr,
		TotalEnergy:         doc.TotalEnergy,
		AngularVelocity:     doc.AngularVelocity,
		MomentOfInertia:     doc.MomentOfInertia,
		PotentialEnergy:     doc.PotentialEnergy,
		KineticEnergy:       doc.KineticEnergy,
		VirialRatio:         doc.VirialRatio,
		Score:               doc.Score,
	}
	*m = *built
	return nil
}

// LoadFile reads and validates a model document from disk.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: read %s: %w", path, err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("model: parse %s: %w", path, err)
	}
	return &m, nil
}
