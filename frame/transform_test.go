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

package frame_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-factors/frame"
)

// quarterly builds a single-column frame for one entity with one row per
// calendar quarter
func quarterly(entity string, colName string, vals ...float64) *frame.Frame {
	df := frame.New(colName)
	refDate := time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC)
	for _, v := range vals {
		df.InsertRow(entity, refDate, refDate.AddDate(0, 1, 15), v)
		refDate = refDate.AddDate(0, 3, 0)
	}
	return df
}

func concat(frames ...*frame.Frame) *frame.Frame {
	out := frame.New(frames[0].ColNames...)
	for _, df := range frames {
		for rowIdx := range df.EntityKeys {
			vals := make([]float64, 0, df.ColCount())
			for _, col := range df.Vals {
				vals = append(vals, col[rowIdx])
			}
			out.InsertRow(df.EntityKeys[rowIdx], df.RefDates[rowIdx], df.KnownDates[rowIdx], vals...)
		}
	}
	return out
}

var _ = Describe("Transform", func() {
	Describe("when computing a rolling sum", func() {
		It("requires a full window before emitting values", func() {
			df := quarterly("001", "saleq", 100, 110, 120, 130, 140)
			res := frame.RollingSum(df, "saleq", 4, 4)
			Expect(math.IsNaN(res[0])).To(BeTrue())
			Expect(math.IsNaN(res[1])).To(BeTrue())
			Expect(math.IsNaN(res[2])).To(BeTrue())
			Expect(res[3]).To(Equal(460.0))
			Expect(res[4]).To(Equal(500.0))
		})

		It("counts only non-NaN values toward min periods", func() {
			df := quarterly("001", "saleq", 100, math.NaN(), 120, 130, 140, 150)
			res := frame.RollingSum(df, "saleq", 4, 4)
			// the NaN at index 1 taints every window that covers it
			Expect(math.IsNaN(res[3])).To(BeTrue())
			Expect(math.IsNaN(res[4])).To(BeTrue())
			Expect(res[5]).To(Equal(540.0))
		})

		It("emits partial sums when min periods is relaxed", func() {
			df := quarterly("001", "saleq", 100, 110, 120)
			res := frame.RollingSum(df, "saleq", 4, 1)
			Expect(res).To(Equal([]float64{100, 210, 330}))
		})
	})

	Describe("when values cross entity boundaries", func() {
		It("never sums across entities", func() {
			a := quarterly("001", "saleq", 100, 110, 120, 130, 140)
			b := quarterly("002", "saleq", 1, 2, 3, 4, 5)
			combined := concat(a, b)

			res := frame.RollingSum(combined, "saleq", 4, 4)
			wantA := frame.RollingSum(a, "saleq", 4, 4)
			wantB := frame.RollingSum(b, "saleq", 4, 4)

			for idx := 0; idx < 5; idx++ {
				if math.IsNaN(wantA[idx]) {
					Expect(math.IsNaN(res[idx])).To(BeTrue())
					Expect(math.IsNaN(res[idx+5])).To(BeTrue())
				} else {
					Expect(res[idx]).To(Equal(wantA[idx]))
					Expect(res[idx+5]).To(Equal(wantB[idx]))
				}
			}
		})

		It("never lags across entities", func() {
			a := quarterly("001", "saleq", 100, 110)
			b := quarterly("002", "saleq", 1, 2)
			combined := concat(a, b)
			res := frame.Lag(combined, "saleq", 1)
			Expect(math.IsNaN(res[0])).To(BeTrue())
			Expect(res[1]).To(Equal(100.0))
			Expect(math.IsNaN(res[2])).To(BeTrue())
			Expect(res[3]).To(Equal(1.0))
		})
	})

	Describe("when forward filling", func() {
		It("fills gaps up to the limit", func() {
			df := quarterly("001", "atq", 1000, math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN())
			res := frame.ForwardFill(df, "atq", 4)
			Expect(res[1]).To(Equal(1000.0))
			Expect(res[4]).To(Equal(1000.0))
			Expect(math.IsNaN(res[5])).To(BeTrue())
		})

		It("resets the budget on a fresh observation", func() {
			df := quarterly("001", "atq", 1000, math.NaN(), 1100, math.NaN(), math.NaN())
			res := frame.ForwardFill(df, "atq", 1)
			Expect(res[1]).To(Equal(1000.0))
			Expect(res[3]).To(Equal(1100.0))
			Expect(math.IsNaN(res[4])).To(BeTrue())
		})

		It("never fills before the first observation", func() {
			df := quarterly("001", "atq", math.NaN(), math.NaN(), 1000)
			res := frame.ForwardFill(df, "atq", 4)
			Expect(math.IsNaN(res[0])).To(BeTrue())
			Expect(math.IsNaN(res[1])).To(BeTrue())
			Expect(res[2]).To(Equal(1000.0))
		})

		It("fills without bound when no limit is given", func() {
			df := quarterly("001", "atq", 1000, math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN())
			res := frame.ForwardFill(df, "atq", 0)
			Expect(res[5]).To(Equal(1000.0))
		})
	})

	Describe("when lagging and leading", func() {
		It("lags by n periods", func() {
			df := quarterly("001", "atq", 1000, 1010, 1020, 1030, 1040)
			res := frame.Lag(df, "atq", 4)
			Expect(math.IsNaN(res[3])).To(BeTrue())
			Expect(res[4]).To(Equal(1000.0))
		})

		It("leads by n periods", func() {
			df := quarterly("001", "ret", 1, 2, 3)
			res := frame.Lead(df, "ret", 1)
			Expect(res[0]).To(Equal(2.0))
			Expect(res[1]).To(Equal(3.0))
			Expect(math.IsNaN(res[2])).To(BeTrue())
		})
	})

	Describe("when compounding trailing returns", func() {
		It("multiplies growth factors over the window", func() {
			df := quarterly("001", "ret", .1, .2, -.1)
			res := frame.TrailingReturn(df, "ret", 3)
			Expect(math.IsNaN(res[0])).To(BeTrue())
			Expect(math.IsNaN(res[1])).To(BeTrue())
			Expect(res[2]).To(BeNumerically("~", .188, 1e-9))
		})

		It("requires a full window of non-NaN returns", func() {
			df := quarterly("001", "ret", .1, math.NaN(), -.1)
			res := frame.TrailingReturn(df, "ret", 3)
			Expect(math.IsNaN(res[2])).To(BeTrue())
		})
	})

	Describe("when filling with a constant", func() {
		It("replaces only NaN values", func() {
			df := quarterly("001", "dlttq", 10, math.NaN(), 20)
			res := frame.FillConst(df, "dlttq", 0)
			Expect(res).To(Equal([]float64{10, 0, 20}))
		})
	})

	Describe("when rounding", func() {
		It("rounds half away from zero", func() {
			res := frame.Round([]float64{1.005, -1.005, 2.344, math.NaN()}, 2)
			Expect(res[0]).To(BeNumerically("~", 1.0, 1e-9))
			Expect(res[2]).To(Equal(2.34))
			Expect(math.IsNaN(res[3])).To(BeTrue())
		})
	})
})
