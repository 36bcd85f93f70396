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
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// Frame stores a table of values keyed by (entity key, reference date). Every
// row additionally carries the date the value became publicly known. For
// market data the reference date and known date coincide; for fundamentals the
// known date is the report date and is always on or after the reference date.
//
// The vals array is column major - e.g.,
//
// saleq  atq
// 1      4
// 2      5
//
// Vals[0][0] = 1
// Vals[1][0] = 4
//
// Missing values are math.NaN().
type Frame struct {
	EntityKeys []string
	RefDates   []time.Time
	KnownDates []time.Time
	ColNames   []string
	Vals       [][]float64
}

// New creates an empty frame with the given column names
func New(colNames ...string) *Frame {
	vals := make([][]float64, len(colNames))
	for idx := range vals {
		vals[idx] = []float64{}
	}
	return &Frame{
		EntityKeys: []string{},
		RefDates:   []time.Time{},
		KnownDates: []time.Time{},
		ColNames:   colNames,
		Vals:       vals,
	}
}

// Len returns the number of rows in the frame
func (df *Frame) Len() int {
	return len(df.EntityKeys)
}

// ColCount returns the number of value columns in the frame
func (df *Frame) ColCount() int {
	return len(df.ColNames)
}

// ColIndex returns the index of the named column; -1 if the column doesn't exist
func (df *Frame) ColIndex(name string) int {
	for idx, val := range df.ColNames {
		if name == val {
			return idx
		}
	}
	return -1
}

// Column returns the values of the named column. The column is not copied;
// callers that want to mutate values should copy first. Panics if the column
// does not exist -- a missing column is a programming error, not a data error.
func (df *Frame) Column(name string) []float64 {
	colIdx := df.ColIndex(name)
	if colIdx == -1 {
		log.Panic().Str("ColName", name).Strs("Available", df.ColNames).Msg("column does not exist in frame")
	}
	return df.Vals[colIdx]
}

// ColumnCopy returns a copy of the values of the named column
func (df *Frame) ColumnCopy(name string) []float64 {
	col := df.Column(name)
	out := make([]float64, len(col))
	copy(out, col)
	return out
}

// HasCol returns true if the named column exists in the frame
func (df *Frame) HasCol(name string) bool {
	return df.ColIndex(name) != -1
}

// Insert adds a new column to the end of the frame. Panics if the column
// length does not equal the number of rows.
func (df *Frame) Insert(name string, col []float64) *Frame {
	if len(col) != df.Len() {
		log.Panic().Str("ColName", name).Int("ColLen", len(col)).Int("NumRows", df.Len()).Msg("column length must equal number of rows")
	}
	df.ColNames = append(df.ColNames, name)
	df.Vals = append(df.Vals, col)
	return df
}

// InsertRow adds a new row to the frame. vals must equal the number of
// columns, otherwise panic.
func (df *Frame) InsertRow(entityKey string, refDate, knownDate time.Time, vals ...float64) *Frame {
	if len(vals) != len(df.ColNames) {
		log.Panic().Int("NumValsPassed", len(vals)).Int("NumColumns", len(df.ColNames)).Msg("number of vals passed must equal number of columns")
	}

	df.EntityKeys = append(df.EntityKeys, entityKey)
	df.RefDates = append(df.RefDates, refDate)
	df.KnownDates = append(df.KnownDates, knownDate)
	for colIdx := range df.ColNames {
		df.Vals[colIdx] = append(df.Vals[colIdx], vals[colIdx])
	}
	return df
}

// Copy creates a deep copy of the frame
func (df *Frame) Copy() *Frame {
	df2 := &Frame{
		EntityKeys: make([]string, len(df.EntityKeys)),
		RefDates:   make([]time.Time, len(df.RefDates)),
		KnownDates: make([]time.Time, len(df.KnownDates)),
		ColNames:   make([]string, len(df.ColNames)),
		Vals:       make([][]float64, len(df.Vals)),
	}

	copy(df2.EntityKeys, df.EntityKeys)
	copy(df2.RefDates, df.RefDates)
	copy(df2.KnownDates, df.KnownDates)
	copy(df2.ColNames, df.ColNames)

	for idx := range df2.Vals {
		df2.Vals[idx] = make([]float64, len(df.Vals[idx]))
		copy(df2.Vals[idx], df.Vals[idx])
	}

	return df2
}

// Select returns a new frame containing only the requested row indices, in
// the given order
func (df *Frame) Select(rows []int) *Frame {
	df2 := &Frame{
		EntityKeys: make([]string, 0, len(rows)),
		RefDates:   make([]time.Time, 0, len(rows)),
		KnownDates: make([]time.Time, 0, len(rows)),
		ColNames:   make([]string, len(df.ColNames)),
		Vals:       make([][]float64, len(df.ColNames)),
	}
	copy(df2.ColNames, df.ColNames)
	for colIdx := range df2.Vals {
		df2.Vals[colIdx] = make([]float64, 0, len(rows))
	}

	for _, rowIdx := range rows {
		df2.EntityKeys = append(df2.EntityKeys, df.EntityKeys[rowIdx])
		df2.RefDates = append(df2.RefDates, df.RefDates[rowIdx])
		df2.KnownDates = append(df2.KnownDates, df.KnownDates[rowIdx])
		for colIdx := range df.Vals {
			df2.Vals[colIdx] = append(df2.Vals[colIdx], df.Vals[colIdx][rowIdx])
		}
	}

	return df2
}

// SelectCols returns a new frame containing only the named value columns, in
// the given order. Row keys are copied. Panics if a column does not exist.
func (df *Frame) SelectCols(names ...string) *Frame {
	df2 := &Frame{
		EntityKeys: make([]string, df.Len()),
		RefDates:   make([]time.Time, df.Len()),
		KnownDates: make([]time.Time, df.Len()),
		ColNames:   make([]string, 0, len(names)),
		Vals:       make([][]float64, 0, len(names)),
	}
	copy(df2.EntityKeys, df.EntityKeys)
	copy(df2.RefDates, df.RefDates)
	copy(df2.KnownDates, df.KnownDates)

	for _, name := range names {
		df2.ColNames = append(df2.ColNames, name)
		df2.Vals = append(df2.Vals, df.ColumnCopy(name))
	}

	return df2
}

// DropNA removes rows where the named column is NaN and returns a new frame
func (df *Frame) DropNA(name string) *Frame {
	col := df.Column(name)
	keep := make([]int, 0, len(col))
	for rowIdx, v := range col {
		if !math.IsNaN(v) {
			keep = append(keep, rowIdx)
		}
	}
	return df.Select(keep)
}

// Partitions returns the row indices belonging to each entity, preserving row
// order within the partition. Rolling and lag operations iterate partitions so
// no value ever crosses from one entity's history into another's, even when
// the frame is globally sorted by date.
func (df *Frame) Partitions() map[string][]int {
	parts := make(map[string][]int)
	for rowIdx, key := range df.EntityKeys {
		parts[key] = append(parts[key], rowIdx)
	}
	return parts
}

// SortByEntityRefDate stable sorts rows by entity key, then reference date
// ascending; the required ordering before any rolling or lag operation
func (df *Frame) SortByEntityRefDate() *Frame {
	return df.sortBy(func(a, b int) bool {
		if df.EntityKeys[a] != df.EntityKeys[b] {
			return df.EntityKeys[a] < df.EntityKeys[b]
		}
		return df.RefDates[a].Before(df.RefDates[b])
	})
}

// SortByKnownDate stable sorts rows by known date ascending, then entity key;
// the natural ordering of as-of join inputs
func (df *Frame) SortByKnownDate() *Frame {
	return df.sortBy(func(a, b int) bool {
		if !df.KnownDates[a].Equal(df.KnownDates[b]) {
			return df.KnownDates[a].Before(df.KnownDates[b])
		}
		return df.EntityKeys[a] < df.EntityKeys[b]
	})
}

func (df *Frame) sortBy(less func(a, b int) bool) *Frame {
	order := make([]int, df.Len())
	for idx := range order {
		order[idx] = idx
	}
	sort.SliceStable(order, func(i, j int) bool {
		return less(order[i], order[j])
	})
	return df.Select(order)
}

// Dedup removes duplicate (entity key, reference date) rows keeping the row
// with the latest known date. Output preserves entity/ref-date sorted order.
func (df *Frame) Dedup() *Frame {
	sorted := df.SortByEntityRefDate()
	keep := make([]int, 0, sorted.Len())
	for rowIdx := range sorted.EntityKeys {
		best := rowIdx
		// scan forward through rows sharing the same key
		if len(keep) > 0 {
			prev := keep[len(keep)-1]
			if sorted.EntityKeys[prev] == sorted.EntityKeys[rowIdx] && sorted.RefDates[prev].Equal(sorted.RefDates[rowIdx]) {
				if sorted.KnownDates[rowIdx].After(sorted.KnownDates[prev]) {
					keep[len(keep)-1] = best
				}
				continue
			}
		}
		keep = append(keep, best)
	}
	return sorted.Select(keep)
}

// Start returns the first reference date in the frame
func (df *Frame) Start() time.Time {
	if df.Len() == 0 {
		return time.Time{}
	}
	return df.RefDates[0]
}

// End returns the last reference date in the frame
func (df *Frame) End() time.Time {
	if df.Len() == 0 {
		return time.Time{}
	}
	return df.RefDates[df.Len()-1]
}

// Table prints an ASCII formatted table to a string
func (df *Frame) Table() string {
	if df.Len() == 0 {
		return "<NO DATA>" // nothing to do as there is no data available in the frame
	}

	tableCols := append([]string{"Entity", "RefDate", "KnownDate"}, df.ColNames...)

	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader(tableCols)
	footer := make([]string, len(tableCols))
	footer[0] = "Num Rows"
	footer[1] = fmt.Sprintf("%d", df.Len())
	table.SetFooter(footer)
	table.SetBorder(false)

	for rowIdx := range df.EntityKeys {
		row := make([]string, 0, len(df.Vals)+3)
		row = append(row, df.EntityKeys[rowIdx])
		row = append(row, df.RefDates[rowIdx].Format("2006-01-02"))
		if df.KnownDates[rowIdx].IsZero() {
			row = append(row, "-")
		} else {
			row = append(row, df.KnownDates[rowIdx].Format("2006-01-02"))
		}
		for _, col := range df.Vals {
			row = append(row, fmt.Sprintf("%.4f", col[rowIdx]))
		}
		table.Append(row)
	}

	table.Render()
	return s.String()
}
