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

package marketcap_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-factors/frame"
	"github.com/penny-vault/pv-factors/linkage"
	"github.com/penny-vault/pv-factors/marketcap"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func priceRow(df *frame.Frame, permno string, date time.Time, permco, prc, shrout float64) {
	df.InsertRow(permno, date, date, permco, prc, shrout)
}

var _ = Describe("Build", func() {
	var (
		prices   *frame.Frame
		resolver *linkage.Resolver
	)

	BeforeEach(func() {
		prices = frame.New("permco", "prc", "shrout")
		resolver = linkage.NewResolver([]linkage.Link{
			{EntityKey: "C1", SecurityID: "7", Start: day(2000, 1, 1)},
			{EntityKey: "C2", SecurityID: "8", Start: day(2000, 1, 1)},
		})
	})

	Context("when a company has two share classes", func() {
		It("sums price times shares across classes", func() {
			priceRow(prices, "10107", day(2021, 3, 15), 7, 100, 800000)
			priceRow(prices, "10108", day(2021, 3, 15), 7, 50, 400000)

			df := marketcap.Build(prices, resolver)
			Expect(df.Len()).To(Equal(1))
			Expect(df.EntityKeys[0]).To(Equal("C1"))
			Expect(df.Column("marketcap")[0]).To(Equal(100000000.0))
		})
	})

	Context("when values are fractional", func() {
		It("truncates toward zero", func() {
			priceRow(prices, "10107", day(2021, 3, 15), 7, 10.37, 333)
			df := marketcap.Build(prices, resolver)
			// 10.37 * 333 = 3453.21
			Expect(df.Column("marketcap")[0]).To(Equal(3453.0))
		})
	})

	Context("when price or shares are missing", func() {
		It("excludes the missing class from the sum", func() {
			priceRow(prices, "10107", day(2021, 3, 15), 7, 100, 800000)
			priceRow(prices, "10108", day(2021, 3, 15), 7, math.NaN(), 400000)

			df := marketcap.Build(prices, resolver)
			Expect(df.Len()).To(Equal(1))
			Expect(df.Column("marketcap")[0]).To(Equal(80000000.0))
		})

		It("omits company-days with no observable class at all", func() {
			priceRow(prices, "10107", day(2021, 3, 15), 7, math.NaN(), 800000)
			df := marketcap.Build(prices, resolver)
			Expect(df.Len()).To(Equal(0))
		})
	})

	Context("when the link is ambiguous", func() {
		It("drops the unresolvable security", func() {
			ambiguous := linkage.NewResolver([]linkage.Link{
				{EntityKey: "C1", SecurityID: "7", Start: day(2000, 1, 1)},
				{EntityKey: "C9", SecurityID: "7", Start: day(2000, 1, 1)},
			})
			priceRow(prices, "10107", day(2021, 3, 15), 7, 100, 800000)
			df := marketcap.Build(prices, ambiguous)
			Expect(df.Len()).To(Equal(0))
		})
	})

	Context("when two share-class groups claim one company", func() {
		It("drops the company-day entirely", func() {
			both := linkage.NewResolver([]linkage.Link{
				{EntityKey: "C1", SecurityID: "7", Start: day(2000, 1, 1)},
				{EntityKey: "C1", SecurityID: "9", Start: day(2000, 1, 1)},
			})
			priceRow(prices, "10107", day(2021, 3, 15), 7, 100, 800000)
			priceRow(prices, "11308", day(2021, 3, 15), 9, 60, 100000)
			priceRow(prices, "10107", day(2021, 3, 16), 7, 101, 800000)

			df := marketcap.Build(prices, both)
			Expect(df.Len()).To(Equal(1))
			Expect(df.RefDates[0]).To(Equal(day(2021, 3, 16)))
		})
	})

	Context("when run twice on the same input", func() {
		It("produces bit-identical frames", func() {
			priceRow(prices, "10107", day(2021, 3, 15), 7, 100.13, 800000)
			priceRow(prices, "10108", day(2021, 3, 15), 7, 50.71, 400000)
			priceRow(prices, "14593", day(2021, 3, 15), 8, 129.41, 16788096)
			priceRow(prices, "14593", day(2021, 3, 16), 8, 127.05, 16788096)

			a := marketcap.Build(prices, resolver)
			b := marketcap.Build(prices, resolver)
			Expect(a.EntityKeys).To(Equal(b.EntityKeys))
			Expect(a.RefDates).To(Equal(b.RefDates))
			Expect(a.Column("marketcap")).To(Equal(b.Column("marketcap")))
		})

		It("orders output by company then date", func() {
			priceRow(prices, "14593", day(2021, 3, 16), 8, 127.05, 16788096)
			priceRow(prices, "10107", day(2021, 3, 15), 7, 100, 800000)
			priceRow(prices, "14593", day(2021, 3, 15), 8, 129.41, 16788096)

			df := marketcap.Build(prices, resolver)
			Expect(df.EntityKeys).To(Equal([]string{"C1", "C2", "C2"}))
			Expect(df.RefDates[1]).To(Equal(day(2021, 3, 15)))
			Expect(df.RefDates[2]).To(Equal(day(2021, 3, 16)))
		})
	})
})
