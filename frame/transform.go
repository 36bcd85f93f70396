// Copyright 2022-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import (
	"math"
)

// Temporal transforms. All functions in this file operate per entity
// partition: rows belonging to different entities never see each other's
// values, regardless of how the frame's rows are interleaved. Rows within an
// entity must be in ascending reference date order (see SortByEntityRefDate).
// Inputs are never modified; each transform returns a fresh column the same
// length as the frame.

// RollingSum computes a trailing-window sum over the named column. A row's
// window covers the row itself and the window-1 rows before it within the
// same entity. NaN values do not contribute to the sum; the result is NaN
// unless at least minPeriods non-NaN values are present in the window.
func RollingSum(df *Frame, name string, window, minPeriods int) []float64 {
	return rollingApply(df, name, window, minPeriods, func(vals []float64) float64 {
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum
	})
}

// TrailingReturn compounds simple period returns over a trailing window:
// prod(1 + r) - 1. The result is NaN unless the window holds a full
// complement of window non-NaN returns.
func TrailingReturn(df *Frame, name string, window int) []float64 {
	return rollingApply(df, name, window, window, func(vals []float64) float64 {
		cum := 1.0
		for _, v := range vals {
			cum *= (1.0 + v)
		}
		return cum - 1.0
	})
}

func rollingApply(df *Frame, name string, window, minPeriods int, fn func(vals []float64) float64) []float64 {
	col := df.Column(name)
	out := make([]float64, len(col))
	buf := make([]float64, 0, window)

	for _, rows := range df.Partitions() {
		for pos, rowIdx := range rows {
			start := pos - window + 1
			if start < 0 {
				start = 0
			}
			buf = buf[:0]
			for _, winIdx := range rows[start : pos+1] {
				if v := col[winIdx]; !math.IsNaN(v) {
					buf = append(buf, v)
				}
			}
			if len(buf) < minPeriods {
				out[rowIdx] = math.NaN()
			} else {
				out[rowIdx] = fn(buf)
			}
		}
	}

	return out
}

// ForwardFill propagates the last non-NaN observation forward within each
// entity. A run of NaN values longer than limit stops being filled after
// limit rows; a fresh observation resets the budget. limit <= 0 fills without
// bound.
func ForwardFill(df *Frame, name string, limit int) []float64 {
	col := df.Column(name)
	out := make([]float64, len(col))

	for _, rows := range df.Partitions() {
		last := math.NaN()
		filled := 0
		for _, rowIdx := range rows {
			v := col[rowIdx]
			if !math.IsNaN(v) {
				last = v
				filled = 0
				out[rowIdx] = v
				continue
			}
			if math.IsNaN(last) || (limit > 0 && filled >= limit) {
				out[rowIdx] = math.NaN()
				continue
			}
			filled++
			out[rowIdx] = last
		}
	}

	return out
}

// Lag shifts the named column forward in time by n rows within each entity:
// a row receives the value observed n rows earlier. The first n rows of each
// entity are NaN.
func Lag(df *Frame, name string, n int) []float64 {
	col := df.Column(name)
	out := make([]float64, len(col))

	for _, rows := range df.Partitions() {
		for pos, rowIdx := range rows {
			if pos < n {
				out[rowIdx] = math.NaN()
			} else {
				out[rowIdx] = col[rows[pos-n]]
			}
		}
	}

	return out
}

// Lead shifts the named column backward in time by n rows within each entity:
// a row receives the value observed n rows later. The final n rows of each
// entity are NaN. Lead peeks into the future relative to its row and must
// only ever feed evaluation targets, never predictive inputs.
func Lead(df *Frame, name string, n int) []float64 {
	col := df.Column(name)
	out := make([]float64, len(col))

	for _, rows := range df.Partitions() {
		for pos, rowIdx := range rows {
			if pos+n >= len(rows) {
				out[rowIdx] = math.NaN()
			} else {
				out[rowIdx] = col[rows[pos+n]]
			}
		}
	}

	return out
}

// FillConst replaces NaN values in the named column with the given constant
func FillConst(df *Frame, name string, value float64) []float64 {
	col := df.Column(name)
	out := make([]float64, len(col))

	for rowIdx, v := range col {
		if math.IsNaN(v) {
			out[rowIdx] = value
		} else {
			out[rowIdx] = v
		}
	}

	return out
}
