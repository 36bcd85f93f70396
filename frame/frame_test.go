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

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("Frame", func() {
	var df *frame.Frame

	BeforeEach(func() {
		df = frame.New("saleq", "atq")
		df.InsertRow("001", day(2020, 3, 31), day(2020, 5, 15), 100, 1000)
		df.InsertRow("001", day(2020, 6, 30), day(2020, 8, 14), 110, 1010)
		df.InsertRow("002", day(2020, 3, 31), day(2020, 5, 1), 50, 500)
	})

	Describe("when inspecting structure", func() {
		It("has the expected number of rows", func() {
			Expect(df.Len()).To(Equal(3))
		})

		It("has the expected number of columns", func() {
			Expect(df.ColCount()).To(Equal(2))
		})

		It("finds existing columns", func() {
			Expect(df.ColIndex("atq")).To(Equal(1))
			Expect(df.HasCol("saleq")).To(BeTrue())
		})

		It("reports missing columns", func() {
			Expect(df.ColIndex("cheq")).To(Equal(-1))
			Expect(df.HasCol("cheq")).To(BeFalse())
		})
	})

	Describe("when copying", func() {
		It("does not alias the source frame", func() {
			df2 := df.Copy()
			df2.Vals[0][0] = -1
			Expect(df.Vals[0][0]).To(Equal(100.0))
		})
	})

	Describe("when inserting a column", func() {
		It("appends at the end", func() {
			df.Insert("cheq", []float64{1, 2, 3})
			Expect(df.ColCount()).To(Equal(3))
			Expect(df.Column("cheq")).To(Equal([]float64{1, 2, 3}))
		})

		It("panics on a length mismatch", func() {
			Expect(func() {
				df.Insert("cheq", []float64{1, 2})
			}).To(Panic())
		})
	})

	Describe("when selecting rows", func() {
		It("preserves the requested order", func() {
			df2 := df.Select([]int{2, 0})
			Expect(df2.Len()).To(Equal(2))
			Expect(df2.EntityKeys).To(Equal([]string{"002", "001"}))
			Expect(df2.Column("saleq")).To(Equal([]float64{50, 100}))
		})
	})

	Describe("when dropping NaN rows", func() {
		It("removes only rows where the named column is NaN", func() {
			df.Insert("f_gpta", []float64{.25, math.NaN(), .5})
			df2 := df.DropNA("f_gpta")
			Expect(df2.Len()).To(Equal(2))
			Expect(df2.EntityKeys).To(Equal([]string{"001", "002"}))
		})
	})

	Describe("when sorting", func() {
		It("orders by entity then reference date", func() {
			shuffled := df.Select([]int{2, 1, 0})
			sorted := shuffled.SortByEntityRefDate()
			Expect(sorted.EntityKeys).To(Equal([]string{"001", "001", "002"}))
			Expect(sorted.RefDates[0]).To(Equal(day(2020, 3, 31)))
			Expect(sorted.RefDates[1]).To(Equal(day(2020, 6, 30)))
		})

		It("orders by known date", func() {
			sorted := df.SortByKnownDate()
			Expect(sorted.EntityKeys).To(Equal([]string{"002", "001", "001"}))
		})
	})

	Describe("when deduplicating restated rows", func() {
		It("keeps the latest known date per entity and reference date", func() {
			df.InsertRow("001", day(2020, 3, 31), day(2020, 7, 1), 105, 1005)
			df2 := df.Dedup()
			Expect(df2.Len()).To(Equal(3))
			saleq := df2.Column("saleq")
			Expect(saleq[0]).To(Equal(105.0))
			Expect(df2.KnownDates[0]).To(Equal(day(2020, 7, 1)))
		})
	})

	Describe("when partitioning by entity", func() {
		It("preserves row order within each partition", func() {
			parts := df.Partitions()
			Expect(parts).To(HaveLen(2))
			Expect(parts["001"]).To(Equal([]int{0, 1}))
			Expect(parts["002"]).To(Equal([]int{2}))
		})
	})
})
