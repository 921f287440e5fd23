package record

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acarlin/figura/pkg/model"
)

func testModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New(4.01, []model.Layer{
		model.LayerFromAxes(0.99, 1.0, 1.01, 1.05),
		model.LayerFromAxes(1.98, 2.0, 2.02, 2.10),
		model.LayerFromAxes(2.97, 3.0, 3.03, 3.15),
	})
	require.NoError(t, err)
	return m
}

func TestRecordSize(t *testing.T) {
	// The total and the trailer offsets are part of the device ABI.
	assert.Equal(t, 904, Size)
	assert.Equal(t, 832, OffRelEquipotentialErr)
	assert.Equal(t, 888, OffSentinel)
	assert.Equal(t, 896, OffScore)
}

func TestPackUnpackRoundTrip(t *testing.T) {
	m := testModel(t)
	m.Outputs = model.Outputs{
		RelEquipotentialErr: 1.25e-7,
		TotalEnergy:         -3.75,
		AngularVelocity:     0.5,
		MomentOfInertia:     2.25,
		PotentialEnergy:     -4.0,
		KineticEnergy:       0.25,
		VirialRatio:         0.125,
		Sentinel:            LayoutSentinel,
		Score:               1.25e-7,
	}

	buf, err := Pack(m)
	require.NoError(t, err)
	require.Len(t, buf, Size)

	back, err := Unpack(buf)
	require.NoError(t, err)

	// Round trip is bit-exact for every field.
	assert.Equal(t, m.AngularMomentum, back.AngularMomentum)
	assert.Equal(t, m.Layers, back.Layers)
	assert.Equal(t, m.Outputs, back.Outputs)
}

func TestPackZeroFillsUnusedSlots(t *testing.T) {
	m := testModel(t)
	buf, err := Pack(m)
	require.NoError(t, err)

	for off := HeaderSize + 3*LayerSize; off < HeaderSize+model.MaxLayers*LayerSize; off++ {
		require.Zerof(t, buf[off], "unused slot byte at offset %d", off)
	}
}

func TestPackCapacity(t *testing.T) {
	m := testModel(t)
	for len(m.Layers) <= model.MaxLayers {
		m.Layers = append(m.Layers, model.LayerFromRadius(1, 1))
	}
	_, err := Pack(m)
	assert.ErrorIs(t, err, model.ErrLayerCapacity)
}

func TestUnpackSizeErrors(t *testing.T) {
	_, err := Unpack(make([]byte, Size-1))
	assert.ErrorIs(t, err, ErrSize)

	_, err = Unpack(make([]byte, Size+1))
	assert.ErrorIs(t, err, ErrSize)
}

func TestUnpackCapacity(t *testing.T) {
	buf, err := Pack(testModel(t))
	require.NoError(t, err)
	binary.NativeEndian.PutUint32(buf[offNumLayers:offNumLayers+4], model.MaxLayers+1)

	_, err = Unpack(buf)
	assert.ErrorIs(t, err, model.ErrLayerCapacity)
}

func TestAt(t *testing.T) {
	m := testModel(t)
	one, err := Pack(m)
	require.NoError(t, err)

	buf := append(append([]byte{}, one...), one...)

	rec, err := At(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, one, rec)

	_, err = At(buf, 2)
	assert.ErrorIs(t, err, ErrSize)
}

func TestScoreAt(t *testing.T) {
	m := testModel(t)
	m.Outputs.Score = 42.5
	buf, err := Pack(m)
	require.NoError(t, err)

	s, err := ScoreAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 42.5, s)
}

func TestScores(t *testing.T) {
	buf := make([]byte, 3*8)
	putF64(buf, 0, 1.5)
	putF64(buf, 8, -2.0)
	putF64(buf, 16, 0.25)

	s, err := Scores(buf)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2.0, 0.25}, s)

	_, err = Scores(make([]byte, 7))
	assert.ErrorIs(t, err, ErrSize)
}

func TestCheckSentinel(t *testing.T) {
	m := testModel(t)
	assert.ErrorIs(t, CheckSentinel(m), ErrSentinel)

	m.Outputs.Sentinel = LayoutSentinel
	assert.NoError(t, CheckSentinel(m))
}
