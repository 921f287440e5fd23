package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acarlin/figura/pkg/gpu"
	"github.com/acarlin/figura/pkg/model"
	"github.com/acarlin/figura/pkg/record"
)

// packScored builds one packed record carrying the given score, with the
// sentinel set the way the kernel writes it.
func packScored(t *testing.T, score float64) []byte {
	t.Helper()
	m, err := model.New(0, []model.Layer{model.LayerFromRadius(1, 1)})
	require.NoError(t, err)
	m.Outputs.Sentinel = record.LayoutSentinel
	m.Outputs.Score = score
	buf, err := record.Pack(m)
	require.NoError(t, err)
	return buf
}

// packGroups simulates the device output: a full record per variant score,
// plus per-group best records and the matching per-group score array.
func packGroups(t *testing.T, scores []float64, groupSize int) (all, groupBest, groupScores []byte) {
	t.Helper()
	groups := gpu.GroupCount(len(scores), groupSize)
	for _, s := range scores {
		all = append(all, packScored(t, s)...)
	}
	for g := 0; g < groups; g++ {
		lo := g * groupSize
		hi := min(lo+groupSize, len(scores))
		best := lo
		for i := lo + 1; i < hi; i++ {
			if scores[i] < scores[best] {
				best = i
			}
		}
		rec, err := record.At(all, best)
		require.NoError(t, err)
		groupBest = append(groupBest, rec...)

		one := packScored(t, scores[best])
		groupScores = append(groupScores, one[record.OffScore:record.OffScore+8]...)
	}
	return all, groupBest, groupScores
}

func minOf(scores []float64) float64 {
	m := scores[0]
	for _, s := range scores[1:] {
		if s < m {
			m = s
		}
	}
	return m
}

func TestReduceFindsGlobalMinimum(t *testing.T) {
	scores := []float64{3.5, 0.25, 7, 1.5, 0.5, 9, 2, 0.75, 4, 6}
	_, groupBest, groupScores := packGroups(t, scores, 4)

	best, err := reduce(groupBest, groupScores)
	require.NoError(t, err)

	// min over group bests equals min over all scores
	assert.Equal(t, minOf(scores), best.Outputs.Score)
}

func TestTopKAscendingAndStable(t *testing.T) {
	scores := []float64{2, 1, 2, 0.5, 1, 3}
	all, _, _ := packGroups(t, scores, 4)

	top, err := topK(all, len(scores), 4)
	require.NoError(t, err)
	require.Len(t, top, 4)

	got := make([]float64, len(top))
	for i, m := range top {
		got[i] = m.Outputs.Score
	}
	// Ascending, with the duplicate 1s in original index order.
	assert.Equal(t, []float64{0.5, 1, 1, 2}, got)
}

func TestTopKClampsToVariantCount(t *testing.T) {
	scores := []float64{2, 1}
	all, _, _ := packGroups(t, scores, 4)

	top, err := topK(all, len(scores), 50)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestTopKHeadMatchesReduction(t *testing.T) {
	scores := []float64{5, 4, 3, 2, 1, 0.5, 6, 7, 8, 9, 10, 11}
	all, groupBest, groupScores := packGroups(t, scores, 4)

	best, err := reduce(groupBest, groupScores)
	require.NoError(t, err)
	top, err := topK(all, len(scores), 3)
	require.NoError(t, err)

	assert.Equal(t, best.Outputs.Score, top[0].Outputs.Score)
}

func TestReduceRejectsBadSentinel(t *testing.T) {
	m, err := model.New(0, []model.Layer{model.LayerFromRadius(1, 1)})
	require.NoError(t, err)
	rec, err := record.Pack(m) // sentinel left at zero
	require.NoError(t, err)

	one := packScored(t, 1)
	_, err = reduce(rec, one[record.OffScore:record.OffScore+8])
	assert.ErrorIs(t, err, record.ErrSentinel)
}

func TestExploreValidation(t *testing.T) {
	e := &Explorer{}
	template, err := model.New(0, []model.Layer{model.LayerFromRadius(1, 1)})
	require.NoError(t, err)

	_, err = e.Explore(template, Options{Variants: 0, GroupSize: 256})
	assert.ErrorIs(t, err, ErrNoVariants)

	_, err = e.Explore(template, Options{Variants: 10, GroupSize: 0})
	assert.Error(t, err)
}

func TestGroupSizeDefine(t *testing.T) {
	assert.Equal(t, "#define GROUP_SIZE 128", GroupSizeDefine(128))
}
