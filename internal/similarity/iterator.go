// Package similarity implements the candidate enumerator (C2): given a
// query vector and an envelope policy, it lazily walks every rounded
// candidate vector the policy admits, in a stable order that can be split
// across workers without overlap.
package similarity

import (
	"math"

	"github.com/paramexchange/core/internal/cryptoutil"
)

// Policy computes, for a query vector and a rounding significance vector,
// the inclusive per-dimension envelope [Min[i], Max[i]] of candidate values
// an enumerator should walk.
type Policy interface {
	Envelope(query []float64, roundingVec []int) (min, max []float64)
}

// Iterator walks every point of a multi-dimensional envelope at the
// rounding grid's step size, dimension by dimension, least-significant
// dimension first (an odometer). It supports Split for dividing the walk
// into contiguous, non-overlapping chunks for parallel workers.
type Iterator struct {
	min    []float64
	max    []float64
	sig    []int
	cur    []float64
	dims   int
	pos    int64
	length int64
	done   bool
}

// NewIterator builds an Iterator over the envelope policy's min/max bounds
// for query, stepping each dimension at its configured rounding grid.
func NewIterator(policy Policy, query []float64, roundingVec []int) *Iterator {
	min, max := policy.Envelope(query, roundingVec)
	dims := len(min)
	cur := make([]float64, dims)
	length := int64(1)
	for i := 0; i < dims; i++ {
		cur[i] = min[i]
		length *= newDimensionGrid(min[i], max[i], roundingVec[i]).count()
	}
	return &Iterator{min: min, max: max, sig: roundingVec, cur: cur, dims: dims, length: length}
}

// dimensionGrid breaks one dimension's [min, max] range into the (at most)
// two increment regimes the grid step can fall into: the increment is a
// function of the current value's magnitude, so it can change once when the
// walk crosses a power-of-10 boundary between min and max. This mirrors
// `compute_increment`/`comp_offset_num` in the enumerator this is ported
// from: a grid point's increment depends on where it sits, not on min alone.
type dimensionGrid struct {
	sig       int
	min, max  float64
	phase1Len int64
	phase1Inc float64
	base2     float64
	phase2Inc float64
}

func newDimensionGrid(min, max float64, sig int) dimensionGrid {
	inc := cryptoutil.SmallestStep(min, sig)
	power := 0
	if min != 0 {
		power = cryptoutil.Power(min) + 1
	}
	threshold := math.Pow(10, float64(power))

	g := dimensionGrid{sig: sig, min: min, max: max, base2: min, phase2Inc: inc}
	if threshold < max {
		g.phase1Len = int64((threshold - min + 0.5*inc) / inc)
		g.phase1Inc = inc
		g.base2 = threshold
		g.phase2Inc = cryptoutil.SmallestStep(threshold, sig)
	}
	return g
}

// count returns how many grid points fall in [min, max] inclusive.
func (g dimensionGrid) count() int64 {
	return g.phase1Len + int64((g.max-g.base2+0.5*g.phase2Inc)/g.phase2Inc) + 1
}

// valueAt returns the idx-th (0-based) grid point in this dimension.
func (g dimensionGrid) valueAt(idx int64) float64 {
	if idx < g.phase1Len {
		return cryptoutil.Round(g.min+float64(idx)*g.phase1Inc, g.sig)
	}
	return cryptoutil.Round(g.base2+float64(idx-g.phase1Len)*g.phase2Inc, g.sig)
}

// Len returns the total number of candidates this iterator will yield.
func (it *Iterator) Len() int64 { return it.length }

// Next returns the next candidate vector and advances the odometer, or
// returns ok=false once every candidate has been yielded.
func (it *Iterator) Next() (candidate []float64, ok bool) {
	if it.done || it.pos >= it.length {
		return nil, false
	}
	out := make([]float64, it.dims)
	copy(out, it.cur)
	it.pos++
	it.advance()
	return out, true
}

// advance increments the odometer by one grid step, carrying over
// dimensions that overflow their max back to their min (least-significant
// dimension first, matching the original enumerator's iteration order).
// The increment at each position is recomputed from the current value on
// every step, since it is a function of the value's magnitude and so may
// change after crossing a power-of-10 boundary, exactly as the original
// enumerator's `__next__` recomputes `self.increments[self.pos]` on every
// reset and every successful step.
func (it *Iterator) advance() {
	for i := 0; i < it.dims; i++ {
		inc := cryptoutil.SmallestStep(it.cur[i], it.sig[i])
		next := cryptoutil.Round(it.cur[i]+inc, it.sig[i])
		if next <= it.max[i]+inc/2 {
			it.cur[i] = next
			return
		}
		it.cur[i] = it.min[i]
	}
	it.done = true
}

// Split divides this iterator's remaining range into n contiguous chunks
// and returns the j-th chunk (0-indexed) as an independent Iterator. Chunks
// never overlap, so parallel workers can each own one without locking.
func (it *Iterator) Split(n, j int) *Iterator {
	remaining := it.length - it.pos
	if remaining < 0 {
		remaining = 0
	}
	chunk := remaining / int64(n)
	rem := remaining % int64(n)
	start := it.pos + int64(j)*chunk
	if int64(j) < rem {
		start += int64(j)
	} else {
		start += rem
	}
	length := chunk
	if int64(j) < rem {
		length++
	}

	sub := &Iterator{
		min:    it.min,
		max:    it.max,
		sig:    it.sig,
		dims:   it.dims,
		pos:    0,
		length: length,
	}
	sub.cur = make([]float64, it.dims)
	seekOdometer(sub.cur, it.min, it.max, it.sig, start)
	return sub
}

// seekOdometer sets cur to the odometer state after `steps` increments from
// min, without materialising the intervening states.
func seekOdometer(cur, min, max []float64, sig []int, steps int64) {
	remaining := steps
	for i := 0; i < len(min); i++ {
		grid := newDimensionGrid(min[i], max[i], sig[i])
		c := grid.count()
		idx := remaining % c
		remaining /= c
		cur[i] = grid.valueAt(idx)
	}
}
