// Package optim searches layout parameters for the combination that
// minimizes a layout metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

var ErrNoResult = errors.New("optim: every combination failed")

// Param is one swept parameter and the values it takes.
type Param struct {
	Name   string
	Values []float64
}

// ParseParam reads "name=v1,v2,...".
func ParseParam(s string) (Param, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return Param{}, fmt.Errorf("optim: parameter %q is not name=v1,v2", s)
	}
	p := Param{Name: strings.TrimSpace(name)}
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Param{}, fmt.Errorf("optim: parameter %s: %w", p.Name, err)
		}
		p.Values = append(p.Values, v)
	}
	return p, nil
}

// Result is the score of one combination.
type Result struct {
	Params map[string]float64
	Score  float64
	Err    error
}

// EvalFunc scores one combination; lower is better.
type EvalFunc func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	params  []Param
	workers int
}

func NewGridSearch(params []Param) *GridSearch {
	return &GridSearch{params: params, workers: runtime.NumCPU()}
}

// WithWorkers bounds how many combinations are evaluated at once.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	if n > 0 {
		g.workers = n
	}
	return g
}

// Combinations lists every point of the grid in parameter order.
func (g *GridSearch) Combinations() []map[string]float64 {
	var out []map[string]float64
	g.combine(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) combine(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.params) {
		*out = append(*out, maps.Clone(current))
		return
	}
	p := g.params[depth]
	for _, v := range p.Values {
		current[p.Name] = v
		g.combine(depth+1, current, out)
	}
	delete(current, p.Name)
}

// Search evaluates every combination and returns the best one with all
// results in grid order. Failed combinations are kept in the results with
// Err set and never win. NaN scores count as failures.
func (g *GridSearch) Search(ctx context.Context, eval EvalFunc) (Result, []Result, error) {
	combos := g.Combinations()
	results := make([]Result, len(combos))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, params := range combos {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := eval(ctx, params)
			if err == nil && math.IsNaN(score) {
				err = errors.New("optim: score is NaN")
			}
			results[i] = Result{Params: params, Score: score, Err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, results, err
	}

	best := -1
	for i, r := range results {
		if r.Err != nil {
			continue
		}
		if best < 0 || r.Score < results[best].Score {
			best = i
		}
	}
	if best < 0 {
		return Result{}, results, ErrNoResult
	}
	return results[best], results, nil
}

// Names returns the swept parameter names in order.
func (g *GridSearch) Names() []string {
	names := make([]string, len(g.params))
	for i, p := range g.params {
		names[i] = p.Name
	}
	return names
}
