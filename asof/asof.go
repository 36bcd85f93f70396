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

// Package asof joins two frames on the time axis without looking into the
// future. Each left row is matched against the single right row, for the same
// entity, whose known date is nearest the left row's reference date on the
// allowed side. This is how slow-moving quarterly fundamentals are attached
// to a daily market data spine: on any given day a company is described by
// its most recently published report, never by one published later.
package asof

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-factors/frame"
)

// Direction selects which side of the left row's reference date a right row
// may come from
type Direction int

const (
	// Backward matches the latest right row with known date <= the left
	// row's reference date
	Backward Direction = iota
	// Forward matches the earliest right row with known date >= the left
	// row's reference date
	Forward
)

type rightRow struct {
	knownDate time.Time
	rowIdx    int
}

// Join returns a copy of left with right's value columns appended. Every left
// row appears exactly once in the result; left rows with no admissible match
// carry NaN in the appended columns. Right rows with a zero known date are
// never matched -- a row whose publication date is unknown cannot be placed
// on the timeline. A non-zero tolerance additionally requires the match to
// lie within tolerance of the left reference date.
//
// Column names must not collide between left and right; a collision is a
// programming error and panics.
func Join(left, right *frame.Frame, direction Direction, tolerance time.Duration) *frame.Frame {
	for _, name := range right.ColNames {
		if left.HasCol(name) {
			log.Panic().Str("ColName", name).Msg("as-of join column exists on both sides")
		}
	}

	// index the right side: per entity, rows sorted by known date
	rightIdx := make(map[string][]rightRow)
	for rowIdx, key := range right.EntityKeys {
		if right.KnownDates[rowIdx].IsZero() {
			continue
		}
		rightIdx[key] = append(rightIdx[key], rightRow{
			knownDate: right.KnownDates[rowIdx],
			rowIdx:    rowIdx,
		})
	}
	for _, rows := range rightIdx {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].knownDate.Before(rows[j].knownDate)
		})
	}

	out := left.Copy()
	joined := make([][]float64, right.ColCount())
	for colIdx := range joined {
		joined[colIdx] = make([]float64, left.Len())
	}

	for rowIdx := range left.EntityKeys {
		matchIdx := match(rightIdx[left.EntityKeys[rowIdx]], left.RefDates[rowIdx], direction, tolerance)
		for colIdx := range joined {
			if matchIdx == -1 {
				joined[colIdx][rowIdx] = math.NaN()
			} else {
				joined[colIdx][rowIdx] = right.Vals[colIdx][matchIdx]
			}
		}
	}

	for colIdx, name := range right.ColNames {
		out.Insert(name, joined[colIdx])
	}

	return out
}

// match returns the right-side row index for the given reference date, or -1
// when no row qualifies. rows must be sorted by known date ascending. Ties on
// known date resolve to the latest qualifying row for Backward and the
// earliest for Forward, matching the sort's stability.
func match(rows []rightRow, refDate time.Time, direction Direction, tolerance time.Duration) int {
	if len(rows) == 0 {
		return -1
	}

	switch direction {
	case Backward:
		// first row with knownDate > refDate; candidate is the row before it
		n := sort.Search(len(rows), func(i int) bool {
			return rows[i].knownDate.After(refDate)
		})
		if n == 0 {
			return -1
		}
		candidate := rows[n-1]
		if tolerance > 0 && refDate.Sub(candidate.knownDate) > tolerance {
			return -1
		}
		return candidate.rowIdx
	case Forward:
		// first row with knownDate >= refDate
		n := sort.Search(len(rows), func(i int) bool {
			return !rows[i].knownDate.Before(refDate)
		})
		if n == len(rows) {
			return -1
		}
		candidate := rows[n]
		if tolerance > 0 && candidate.knownDate.Sub(refDate) > tolerance {
			return -1
		}
		return candidate.rowIdx
	}

	log.Panic().Int("Direction", int(direction)).Msg("unknown as-of join direction")
	return -1
}
