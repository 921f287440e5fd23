// Package search drives the best-of-N exploration kernel: it scatters N
// perturbed variants of a template model across the device, reduces them to
// per-workgroup winners on the device, and finishes the reduction on the
// host over the tiny per-group score array.
package search

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"

	"github.com/viterin/vek"

	"github.com/acarlin/figura/pkg/gpu"
	"github.com/acarlin/figura/pkg/model"
	"github.com/acarlin/figura/pkg/record"
)

// KernelFile is the exploration kernel, resolved under the configured
// shader directory.
const KernelFile = "explore_variations.glsl.c"

// GroupSizeDefine returns the macro line that sets the kernel's workgroup
// size. It must match the GroupSize passed to Explore.
func GroupSizeDefine(n int) string {
	return fmt.Sprintf("#define GROUP_SIZE %d", n)
}

var (
	ErrNoVariants = errors.New("search: variant count must be positive")
	// ErrReduction means the device per-group reduction and the host full
	// sort disagree about the global best. Either the kernel's shared-memory
	// reduction or the record layout is broken.
	ErrReduction = errors.New("search: device and host reductions disagree")
)

// Options control one exploration dispatch.
type Options struct {
	// Variants is N, the number of perturbed candidates to evaluate.
	Variants int
	// Temperature scales the perturbation magnitude. Zero disables
	// perturbation entirely; every variant evaluates the template as-is.
	Temperature float64
	// TopK requests the k best candidates in ascending score order.
	// Zero or one returns only the best.
	TopK int
	// Seed fixes the RNG stream. Nil draws a fresh seed.
	Seed *uint32
	// GroupSize is the workgroup size; must match the kernel's local size.
	GroupSize int
}

// Result of one exploration dispatch.
type Result struct {
	Best *model.Model
	// TopK holds the k best candidates, ascending by score, ties broken by
	// variant index. TopK[0] is Best. Empty unless Options.TopK > 1.
	TopK []*model.Model
	Seed uint32
}

// Explorer owns a compiled exploration kernel bound to a GPU context.
type Explorer struct {
	prog *gpu.Program
}

// NewExplorer compiles the exploration kernel from dir with the given
// precision defines.
func NewExplorer(ctx *gpu.Context, dir string, defines []string) (*Explorer, error) {
	prog, err := ctx.NewProgram(filepath.Join(dir, KernelFile), defines)
	if err != nil {
		return nil, err
	}
	return &Explorer{prog: prog}, nil
}

// Release frees the kernel and its device buffers.
func (e *Explorer) Release() { e.prog.Release() }

// Explore evaluates opts.Variants perturbations of template on the device
// and returns the lowest-scoring candidate.
//
// The device writes three result buffers: every evaluated record, one best
// record per workgroup, and one best score per workgroup. The host finds the
// global winner by scanning only the per-group scores, so the final
// reduction touches ceil(N/groupSize) floats rather than N records.
func (e *Explorer) Explore(template *model.Model, opts Options) (*Result, error) {
	if opts.Variants <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoVariants, opts.Variants)
	}
	if opts.GroupSize <= 0 {
		return nil, fmt.Errorf("search: group size must be positive, got %d", opts.GroupSize)
	}

	in, err := record.Pack(template)
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == nil {
		s := rand.Uint32()
		seed = &s
	}

	groups := gpu.GroupCount(opts.Variants, opts.GroupSize)

	buffers := []gpu.BufferSpec{
		{Binding: 0, ElemSize: record.Size, Count: 1, Mode: gpu.In, Initial: in},
		{Binding: 1, ElemSize: record.Size, Count: opts.Variants, Mode: gpu.Out},
		{Binding: 2, ElemSize: record.Size, Count: groups, Mode: gpu.Out},
		{Binding: 3, ElemSize: 8, Count: groups, Mode: gpu.Out},
	}
	uniforms := []gpu.UniformSpec{
		{Name: "num_variations", Value: uint32(opts.Variants), Type: gpu.Uniform1ui},
		{Name: "seed", Value: *seed, Type: gpu.Uniform1ui},
		{Name: "annealing_temperature", Value: opts.Temperature, Type: gpu.Uniform1d},
	}

	out, err := e.prog.Dispatch(buffers, uniforms, opts.Variants, opts.GroupSize)
	if err != nil {
		return nil, err
	}

	best, err := reduce(out[2], out[3])
	if err != nil {
		return nil, err
	}

	res := &Result{Best: best, Seed: *seed}

	if opts.TopK > 1 {
		top, err := topK(out[1], opts.Variants, opts.TopK)
		if err != nil {
			return nil, err
		}
		if top[0].Outputs.Score != best.Outputs.Score {
			return nil, fmt.Errorf("%w: group best %v, sorted best %v",
				ErrReduction, best.Outputs.Score, top[0].Outputs.Score)
		}
		res.TopK = top
	}

	return res, nil
}

// reduce finds the global best by argmin over the per-group score buffer and
// unpacks the matching group-best record.
func reduce(groupBest, groupScores []byte) (*model.Model, error) {
	scores, err := record.Scores(groupScores)
	if err != nil {
		return nil, err
	}
	win := vek.ArgMin(scores)

	rec, err := record.At(groupBest, win)
	if err != nil {
		return nil, err
	}
	return unpackChecked(rec)
}

// topK sorts variant indices by score ascending, stable so equal scores keep
// variant order, and unpacks the first k records.
func topK(all []byte, variants, k int) ([]*model.Model, error) {
	if k > variants {
		k = variants
	}
	scores := make([]float64, variants)
	for i := range scores {
		s, err := record.ScoreAt(all, i)
		if err != nil {
			return nil, err
		}
		scores[i] = s
	}
	idx := make([]int, variants)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] < scores[idx[b]]
	})

	out := make([]*model.Model, 0, k)
	for _, i := range idx[:k] {
		rec, err := record.At(all, i)
		if err != nil {
			return nil, err
		}
		m, err := unpackChecked(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func unpackChecked(rec []byte) (*model.Model, error) {
	m, err := record.Unpack(rec)
	if err != nil {
		return nil, err
	}
	if err := record.CheckSentinel(m); err != nil {
		return nil, err
	}
	return m, nil
}
