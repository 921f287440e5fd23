// Package record implements the fixed-offset binary layout shared between
// host memory and the device-side Model struct.
//
// The layout is a compatibility contract with the std430 struct declared in
// shaders/explore_variations.glsl.c and must be changed in lockstep on both
// sides. All doubles are native-endian; the layer count is an unsigned
// 32-bit; padding is explicit and zero-filled on both sides rather than left
// to implicit std430 placement:
//
//	offset   0  float64  angular_momentum
//	offset   8  uint32   num_layers
//	offset  12  uint32   explicit zero pad
//	offset  16  16 bytes explicit zero pad (layer array base at 32)
//	offset  32  20 layer slots x 40 bytes (a, b, c, volumetric_radius, density)
//	offset 832  9 float64 trailer: rel_equipotential_err, total_energy,
//	            angular_velocity, moment_of_inertia, potential_energy,
//	            kinetic_energy, virial_ratio, sentinel, score
//	total  904  bytes
//
// Unused layer slots are zero-filled, never left uninitialized. The sentinel
// trailer field is written by the kernel as LayoutSentinel and checked on
// readback; any other value means host and device disagree about the layout.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/acarlin/figura/pkg/model"
)

// Layout constants. Size is fixed per schema version; every serialization or
// deserialization must produce or consume exactly Size bytes.
const (
	HeaderSize  = 32
	LayerSize   = 40
	TrailerSize = 9 * 8
	Size        = HeaderSize + model.MaxLayers*LayerSize + TrailerSize // 904

	offAngularMomentum = 0
	offNumLayers       = 8
	offLayers          = HeaderSize
	offTrailer         = offLayers + model.MaxLayers*LayerSize // 832

	// Trailer field offsets, in declaration order.
	OffRelEquipotentialErr = offTrailer
	OffTotalEnergy         = offTrailer + 8
	OffAngularVelocity     = offTrailer + 16
	OffMomentOfInertia     = offTrailer + 24
	OffPotentialEnergy     = offTrailer + 32
	OffKineticEnergy       = offTrailer + 40
	OffVirialRatio         = offTrailer + 48
	OffSentinel            = offTrailer + 56
	OffScore               = offTrailer + 64
)

// LayoutSentinel is the constant the kernel writes into the sentinel trailer
// slot of every record. Exactly representable in a float64.
const LayoutSentinel = 123456789.0

// Errors
var (
	ErrSize     = errors.New("record: byte length does not match ABI record size")
	ErrSentinel = errors.New("record: layout sentinel mismatch, host and device struct layouts disagree")
)

func putF64(b []byte, off int, v float64) {
	binary.NativeEndian.PutUint64(b[off:off+8], math.Float64bits(v))
}

func f64(b []byte, off int) float64 {
	return math.Float64frombits(binary.NativeEndian.Uint64(b[off : off+8]))
}

// Pack serializes a model into exactly Size bytes: header, all
// model.MaxLayers layer slots (occupied slots carry the layer data, the rest
// stay zero), then the trailer. Output fields not yet computed pack as 0.0.
func Pack(m *model.Model) ([]byte, error) {
	if m.NumLayers() > model.MaxLayers {
		return nil, fmt.Errorf("%w: %d layers, capacity %d", model.ErrLayerCapacity, m.NumLayers(), model.MaxLayers)
	}
	b := make([]byte, Size)
	putF64(b, offAngularMomentum, m.AngularMomentum)
	binary.NativeEndian.PutUint32(b[offNumLayers:offNumLayers+4], uint32(m.NumLayers()))
	for i, l := range m.Layers {
		off := offLayers + i*LayerSize
		putF64(b, off, l.A)
		putF64(b, off+8, l.B)
		putF64(b, off+16, l.C)
		putF64(b, off+24, l.R)
		putF64(b, off+32, l.Density)
	}
	out := m.Outputs
	putF64(b, OffRelEquipotentialErr, out.RelEquipotentialErr)
	putF64(b, OffTotalEnergy, out.TotalEnergy)
	putF64(b, OffAngularVelocity, out.AngularVelocity)
	putF64(b, OffMomentOfInertia, out.MomentOfInertia)
	putF64(b, OffPotentialEnergy, out.PotentialEnergy)
	putF64(b, OffKineticEnergy, out.KineticEnergy)
	putF64(b, OffVirialRatio, out.VirialRatio)
	putF64(b, OffSentinel, out.Sentinel)
	putF64(b, OffScore, out.Score)
	return b, nil
}

// Unpack deserializes exactly Size bytes into a model, reconstructing only
// the declared number of layers. A byte length other than Size is a fatal
// ABI error; a layer count beyond capacity means the buffer is corrupt or
// the device wrote a different layout.
func Unpack(b []byte) (*model.Model, error) {
	if len(b) != Size {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrSize, Size, len(b))
	}
	n := binary.NativeEndian.Uint32(b[offNumLayers : offNumLayers+4])
	if n > model.MaxLayers {
		return nil, fmt.Errorf("%w: record declares %d layers, capacity %d", model.ErrLayerCapacity, n, model.MaxLayers)
	}
	m := &model.Model{
		AngularMomentum: f64(b, offAngularMomentum),
		Layers:          make([]model.Layer, n),
	}
	for i := 0; i < int(n); i++ {
		off := offLayers + i*LayerSize
		m.Layers[i] = model.Layer{
			A:       f64(b, off),
			B:       f64(b, off+8),
			C:       f64(b, off+16),
			R:       f64(b, off+24),
			Density: f64(b, off+32),
		}
	}
	m.Outputs = model.Outputs{
		RelEquipotentialErr: f64(b, OffRelEquipotentialErr),
		TotalEnergy:         f64(b, OffTotalEnergy),
		AngularVelocity:     f64(b, OffAngularVelocity),
		MomentOfInertia:     f64(b, OffMomentOfInertia),
		PotentialEnergy:     f64(b, OffPotentialEnergy),
		KineticEnergy:       f64(b, OffKineticEnergy),
		VirialRatio:         f64(b, OffVirialRatio),
		Sentinel:            f64(b, OffSentinel),
		Score:               f64(b, OffScore),
	}
	return m, nil
}

// At slices record i out of a packed record array.
func At(buf []byte, i int) ([]byte, error) {
	lo, hi := i*Size, (i+1)*Size
	if lo < 0 || hi > len(buf) {
		return nil, fmt.Errorf("%w: record %d out of range for %d-byte buffer", ErrSize, i, len(buf))
	}
	return buf[lo:hi], nil
}

// ScoreAt reads the score trailer field of record i from a packed record
// array without deserializing the rest of the record.
func ScoreAt(buf []byte, i int) (float64, error) {
	rec, err := At(buf, i)
	if err != nil {
		return 0, err
	}
	return f64(rec, OffScore), nil
}

// Scores decodes a packed float64 array, as read back from a score-only
// device buffer.
func Scores(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("%w: score buffer length %d is not a multiple of 8", ErrSize, len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = f64(buf, i*8)
	}
	return out, nil
}

// CheckSentinel verifies the layout sentinel of an unpacked model.
func CheckSentinel(m *model.Model) error {
	if m.Outputs.Sentinel != LayoutSentinel {
		return fmt.Errorf("%w: expected %v, got %v", ErrSentinel, float64(LayoutSentinel), m.Outputs.Sentinel)
	}
	return nil
}
