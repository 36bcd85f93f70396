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
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-factors/frame"
)

// Factor derives a single named column from fundamentals and market data.
// The name doubles as the output column and the persisted table name.
type Factor struct {
	Name    string
	Desc    string
	Compute func(ctx context.Context, eng *Engine) (*frame.Frame, error)
}

var catalogue = map[string]Factor{}

func register(fac Factor) {
	if _, ok := catalogue[fac.Name]; ok {
		log.Panic().Str("Factor", fac.Name).Msg("factor registered twice")
	}
	catalogue[fac.Name] = fac
}

// Lookup returns the named factor definition
func Lookup(name string) (Factor, bool) {
	fac, ok := catalogue[name]
	return fac, ok
}

// Names returns every registered factor name in sorted order
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ttm inserts a trailing-twelve-month column named `<col>_ltm`: the rolling
// sum of the last 4 quarters, requiring all 4 to be present, rounded to the
// source's 2 decimal precision. Returns the new column name.
func ttm(df *frame.Frame, col string) string {
	name := col + "_ltm"
	df.Insert(name, frame.Round(frame.RollingSum(df, col, 4, 4), 2))
	return name
}

// lagged inserts a column holding `col` shifted n rows within each entity,
// named `<col>_lag` for the common 4-quarter case and `<col>_lag_<n>`
// otherwise. Returns the new column name.
func lagged(df *frame.Frame, col string, n int) string {
	name := col + "_lag"
	if n != 4 {
		name = fmt.Sprintf("%s_lag_%d", col, n)
	}
	df.Insert(name, frame.Lag(df, col, n))
	return name
}

// halfSum returns 0.5*(a+b), the two-period average used to scale flow
// variables by assets
func halfSum(a, b []float64) []float64 {
	return frame.ScaleVals(frame.AddVals(a, b), 0.5)
}
