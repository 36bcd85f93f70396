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

package pricevol_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-factors/frame"
	"github.com/penny-vault/pv-factors/pricevol"
)

// dailyPrices builds a single-security frame with one row per synthetic
// trading day; ret and retx are constant each day
func dailyPrices(permno string, days int, prc, ret, retx, cfacpr float64) *frame.Frame {
	df := frame.New("prc", "ret", "retx", "cfacpr")
	date := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		df.InsertRow(permno, date, date, prc, ret, retx, cfacpr)
		date = date.AddDate(0, 0, 1)
	}
	return df
}

var _ = Describe("Process", func() {
	It("adjusts close prices by the cumulative price factor", func() {
		df := pricevol.Process(dailyPrices("10107", 3, 200, 0, 0, 4))
		Expect(df.Column("adjclose")).To(Equal([]float64{50, 50, 50}))
	})

	It("maps a zero price factor to missing", func() {
		df := pricevol.Process(dailyPrices("10107", 1, 200, 0, 0, 0))
		Expect(math.IsNaN(df.Column("adjclose")[0])).To(BeTrue())
	})

	It("compounds a full 252-day window of returns", func() {
		df := pricevol.Process(dailyPrices("10107", 253, 100, .001, .0005, 1))
		cum := df.Column("cum_ret_1y")
		Expect(math.IsNaN(cum[250])).To(BeTrue())
		Expect(cum[251]).To(BeNumerically("~", math.Pow(1.001, 252)-1, 1e-12))
		Expect(cum[252]).To(BeNumerically("~", math.Pow(1.001, 252)-1, 1e-12))
	})

	It("reads the forward return from 252 rows ahead", func() {
		df := pricevol.Process(dailyPrices("10107", 504, 100, .001, .0005, 1))
		cum := df.Column("cum_ret_1y")
		fwd := df.Column("fwd_ret_1y")
		Expect(fwd[0]).To(Equal(cum[252]))
		Expect(math.IsNaN(fwd[503])).To(BeTrue())
	})

	It("keeps dividend-exclusive returns separate", func() {
		df := pricevol.Process(dailyPrices("10107", 253, 100, .001, .0005, 1))
		cumX := df.Column("cum_ret_1y_excl_div")
		Expect(cumX[252]).To(BeNumerically("~", math.Pow(1.0005, 252)-1, 1e-12))
	})

	It("does not modify the input frame", func() {
		raw := dailyPrices("10107", 3, 200, 0, 0, 4)
		pricevol.Process(raw)
		Expect(raw.ColCount()).To(Equal(4))
	})
})
