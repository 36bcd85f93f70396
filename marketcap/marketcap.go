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

// Package marketcap builds the daily company market capitalization table
// that serves as the spine all factor values are joined onto. A company may
// trade under several share classes at once; its market cap on a day is the
// sum of price times shares outstanding over every class trading that day.
package marketcap

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-factors/frame"
	"github.com/penny-vault/pv-factors/linkage"
)

type permcoDay struct {
	permco string
	date   time.Time
}

type entityDay struct {
	entityKey string
	date      time.Time
}

// Build computes daily market capitalization from a security price frame and
// resolves each value to its issuing company. The price frame must carry
// permco, prc, and shrout columns (see wrds.DailyPrices). Shares outstanding
// are reported in thousands, so values are in thousands of the reporting
// currency; each is truncated to a whole unit.
//
// Securities whose share-class group cannot be resolved to exactly one
// company on a given day are excluded, as are company-days where two distinct
// share-class groups claim the same company. Identical inputs always produce
// a bit-identical frame: output is ordered by company then date and the
// per-day sum is accumulated in ascending security order.
func Build(prices *frame.Frame, resolver *linkage.Resolver) *frame.Frame {
	permcoCol := prices.Column("permco")
	prcCol := prices.Column("prc")
	shroutCol := prices.Column("shrout")

	// accumulate price*shares per share-class group per day, in ascending
	// security order so float summation order is stable
	order := make([]int, prices.Len())
	for idx := range order {
		order[idx] = idx
	}
	sort.SliceStable(order, func(i, j int) bool {
		return prices.EntityKeys[order[i]] < prices.EntityKeys[order[j]]
	})

	sums := make(map[permcoDay]float64)
	counts := make(map[permcoDay]int)
	for _, rowIdx := range order {
		prc := prcCol[rowIdx]
		shrout := shroutCol[rowIdx]
		if math.IsNaN(prc) || math.IsNaN(shrout) {
			continue
		}
		key := permcoDay{
			permco: formatPermco(permcoCol[rowIdx]),
			date:   prices.RefDates[rowIdx],
		}
		sums[key] += prc * shrout
		counts[key]++
	}

	// resolve each share-class group to its company; a company-day claimed
	// by two groups is ambiguous and dropped entirely
	resolved := make(map[entityDay]float64)
	claims := make(map[entityDay]int)
	unresolved := 0
	for key, sum := range sums {
		entityKey, ok := resolver.Resolve(key.permco, key.date)
		if !ok {
			unresolved += counts[key]
			continue
		}
		eKey := entityDay{entityKey: entityKey, date: key.date}
		resolved[eKey] = sum
		claims[eKey]++
	}

	out := frame.New("marketcap")
	keys := make([]entityDay, 0, len(resolved))
	dropped := 0
	for key := range resolved {
		if claims[key] > 1 {
			dropped++
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].entityKey != keys[j].entityKey {
			return keys[i].entityKey < keys[j].entityKey
		}
		return keys[i].date.Before(keys[j].date)
	})

	for _, key := range keys {
		out.InsertRow(key.entityKey, key.date, key.date, math.Trunc(resolved[key]))
	}

	if unresolved > 0 || dropped > 0 {
		log.Info().
			Int("UnresolvedRows", unresolved).
			Int("AmbiguousCompanyDays", dropped).
			Int("NumRows", out.Len()).
			Msg("built market capitalization table")
	}

	return out
}

// formatPermco renders the numeric permco column as the string key the link
// table uses
func formatPermco(permco float64) string {
	return strconv.FormatInt(int64(permco), 10)
}
