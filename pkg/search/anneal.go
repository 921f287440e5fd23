package search

import (
	"fmt"

	"github.com/acarlin/figura/pkg/model"
)

// AnnealOptions run repeated exploration rounds, feeding each round's best
// back as the next round's template while the temperature cools
// geometrically.
type AnnealOptions struct {
	Options
	// Rounds is the number of exploration dispatches.
	Rounds int
	// Cooling multiplies the temperature after every round. Must be in
	// (0, 1]; 1 keeps the temperature constant.
	Cooling float64
	// OnRound, if set, is called after each completed round with the round
	// index, the temperature it ran at, and its result.
	OnRound func(round int, temperature float64, res *Result)
}

// Anneal runs opts.Rounds exploration rounds and returns the final round's
// result. Each round draws its own seed unless Options.Seed pins the first
// round; later rounds always draw fresh seeds so the streams differ.
func (e *Explorer) Anneal(template *model.Model, opts AnnealOptions) (*Result, error) {
	if opts.Rounds <= 0 {
		return nil, fmt.Errorf("search: round count must be positive, got %d", opts.Rounds)
	}
	if opts.Cooling <= 0 || opts.Cooling > 1 {
		return nil, fmt.Errorf("search: cooling factor must be in (0, 1], got %v", opts.Cooling)
	}

	round := opts.Options
	current := template
	var res *Result
	for i := 0; i < opts.Rounds; i++ {
		var err error
		res, err = e.Explore(current, round)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", i, err)
		}
		if opts.OnRound != nil {
			opts.OnRound(i, round.Temperature, res)
		}
		current = res.Best
		round.Temperature *= opts.Cooling
		round.Seed = nil
	}
	return res, nil
}
