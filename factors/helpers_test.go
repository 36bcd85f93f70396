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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-factors/frame"
)

func quarterEnd(year int, quarter int) time.Time {
	months := []time.Month{time.March, time.June, time.September, time.December}
	days := []int{31, 30, 30, 31}
	return time.Date(year, months[quarter-1], days[quarter-1], 0, 0, 0, 0, time.UTC)
}

var _ = Describe("applyPolicy", func() {
	var df *frame.Frame

	BeforeEach(func() {
		df = frame.New("dpq", "atq", "ibq")
		df.InsertRow("001690", quarterEnd(2020, 1), quarterEnd(2020, 1).AddDate(0, 0, 45), 5, 500, 20)
		df.InsertRow("001690", quarterEnd(2020, 2), quarterEnd(2020, 2).AddDate(0, 0, 45), math.NaN(), math.NaN(), math.NaN())
		df.InsertRow("001690", quarterEnd(2020, 3), quarterEnd(2020, 3).AddDate(0, 0, 45), math.NaN(), 510, 25)
	})

	It("zero-fills flow items", func() {
		applyPolicy(df, []string{"dpq", "atq", "ibq"})
		Expect(df.Column("dpq")).To(Equal([]float64{5, 0, 0}))
	})

	It("carries balance-sheet stocks forward", func() {
		applyPolicy(df, []string{"dpq", "atq", "ibq"})
		Expect(df.Column("atq")).To(Equal([]float64{500, 500, 510}))
	})

	It("leaves income items missing", func() {
		applyPolicy(df, []string{"dpq", "atq", "ibq"})
		Expect(math.IsNaN(df.Column("ibq")[1])).To(BeTrue())
	})

	It("abandons a stale stock after four quarters", func() {
		df2 := frame.New("atq")
		df2.InsertRow("001690", quarterEnd(2019, 1), quarterEnd(2019, 1), 500)
		for quarter := 2; quarter <= 4; quarter++ {
			df2.InsertRow("001690", quarterEnd(2019, quarter), quarterEnd(2019, quarter), math.NaN())
		}
		for quarter := 1; quarter <= 2; quarter++ {
			df2.InsertRow("001690", quarterEnd(2020, quarter), quarterEnd(2020, quarter), math.NaN())
		}

		applyPolicy(df2, []string{"atq"})
		atq := df2.Column("atq")
		Expect(atq[4]).To(Equal(500.0))
		Expect(math.IsNaN(atq[5])).To(BeTrue())
	})
})

var _ = Describe("ttm", func() {
	It("sums the trailing four quarters and rounds to cents", func() {
		df := frame.New("saleq")
		vals := []float64{10.111, 10.111, 10.111, 10.111, 20}
		for idx, v := range vals {
			df.InsertRow("001690", quarterEnd(2020, 1).AddDate(0, 3*idx, 0), time.Time{}, v)
		}

		name := ttm(df, "saleq")
		Expect(name).To(Equal("saleq_ltm"))

		ltm := df.Column("saleq_ltm")
		Expect(math.IsNaN(ltm[2])).To(BeTrue())
		Expect(ltm[3]).To(Equal(40.44))
		Expect(ltm[4]).To(Equal(50.33))
	})
})

var _ = Describe("decileByDate", func() {
	It("ranks each trading day independently into ten buckets", func() {
		df := frame.New("growth")
		date := time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)
		for idx := 0; idx < 20; idx++ {
			df.InsertRow("E"+string(rune('A'+idx)), date, date, float64(idx))
		}

		deciles := decileByDate(df, "growth")
		Expect(deciles[0]).To(Equal(1.0))
		Expect(deciles[1]).To(Equal(1.0))
		Expect(deciles[2]).To(Equal(2.0))
		Expect(deciles[19]).To(Equal(10.0))
	})

	It("leaves undefined growth undefined", func() {
		df := frame.New("growth")
		date := time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)
		df.InsertRow("EA", date, date, 1)
		df.InsertRow("EB", date, date, math.NaN())

		deciles := decileByDate(df, "growth")
		Expect(deciles[0]).To(Equal(1.0))
		Expect(math.IsNaN(deciles[1])).To(BeTrue())
	})
})

var _ = Describe("memo frames", func() {
	It("round-trips row keys and missing values", func() {
		df := frame.New("f_sp")
		date := time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)
		df.InsertRow("001690", date, date.AddDate(0, 0, 1), 0.25)
		df.InsertRow("001690", date.AddDate(0, 0, 1), time.Time{}, math.NaN())

		raw, err := encodeFrame(df)
		Expect(err).To(BeNil())

		df2, err := decodeFrame(raw)
		Expect(err).To(BeNil())
		Expect(df2.EntityKeys).To(Equal(df.EntityKeys))
		Expect(df2.RefDates[0].Equal(df.RefDates[0])).To(BeTrue())
		Expect(df2.KnownDates[1].IsZero()).To(BeTrue())
		Expect(df2.Column("f_sp")[0]).To(Equal(0.25))
		Expect(math.IsNaN(df2.Column("f_sp")[1])).To(BeTrue())
	})
})
