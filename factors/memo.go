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

package factors

import (
	"math"
	"time"

	json "github.com/goccy/go-json"

	"github.com/penny-vault/pv-factors/frame"
)

// memoFrame is the JSON shape of a frame held in the in-memory run cache.
// NaN has no JSON representation so missing values are encoded as null;
// dates are unix milliseconds.
type memoFrame struct {
	EntityKeys []string     `json:"entity_keys"`
	RefDates   []int64      `json:"ref_dates"`
	KnownDates []int64      `json:"known_dates"`
	ColNames   []string     `json:"col_names"`
	Vals       [][]*float64 `json:"vals"`
}

func encodeFrame(df *frame.Frame) ([]byte, error) {
	enc := memoFrame{
		EntityKeys: df.EntityKeys,
		RefDates:   make([]int64, df.Len()),
		KnownDates: make([]int64, df.Len()),
		ColNames:   df.ColNames,
		Vals:       make([][]*float64, len(df.Vals)),
	}

	for rowIdx := range df.RefDates {
		enc.RefDates[rowIdx] = df.RefDates[rowIdx].UnixMilli()
		enc.KnownDates[rowIdx] = df.KnownDates[rowIdx].UnixMilli()
	}

	for colIdx, col := range df.Vals {
		enc.Vals[colIdx] = make([]*float64, len(col))
		for rowIdx, v := range col {
			if !math.IsNaN(v) {
				v2 := v
				enc.Vals[colIdx][rowIdx] = &v2
			}
		}
	}

	return json.Marshal(enc)
}

func decodeFrame(raw []byte) (*frame.Frame, error) {
	var enc memoFrame
	if err := json.Unmarshal(raw, &enc); err != nil {
		return nil, err
	}

	df := &frame.Frame{
		EntityKeys: enc.EntityKeys,
		RefDates:   make([]time.Time, len(enc.RefDates)),
		KnownDates: make([]time.Time, len(enc.KnownDates)),
		ColNames:   enc.ColNames,
		Vals:       make([][]float64, len(enc.Vals)),
	}

	for rowIdx := range enc.RefDates {
		df.RefDates[rowIdx] = time.UnixMilli(enc.RefDates[rowIdx]).UTC()
		df.KnownDates[rowIdx] = time.UnixMilli(enc.KnownDates[rowIdx]).UTC()
	}

	for colIdx, col := range enc.Vals {
		df.Vals[colIdx] = make([]float64, len(col))
		for rowIdx, v := range col {
			if v == nil {
				df.Vals[colIdx][rowIdx] = math.NaN()
			} else {
				df.Vals[colIdx][rowIdx] = *v
			}
		}
	}

	return df, nil
}
