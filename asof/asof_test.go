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

package asof_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-factors/asof"
	"github.com/penny-vault/pv-factors/frame"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("Join", func() {
	var (
		daily        *frame.Frame
		fundamentals *frame.Frame
	)

	BeforeEach(func() {
		// daily market data spine; reference and known dates coincide
		daily = frame.New("marketcap")
		daily.InsertRow("001", day(2021, 1, 19), day(2021, 1, 19), 5e9)
		daily.InsertRow("001", day(2021, 3, 15), day(2021, 3, 15), 5.5e9)
		daily.InsertRow("001", day(2021, 4, 22), day(2021, 4, 22), 6e9)

		// quarterly reports published on their known date
		fundamentals = frame.New("saleq")
		fundamentals.InsertRow("001", day(2020, 12, 31), day(2021, 1, 20), 100)
		fundamentals.InsertRow("001", day(2021, 3, 31), day(2021, 4, 22), 110)
	})

	Describe("when joining backward", func() {
		It("selects the latest report known on or before each day", func() {
			res := asof.Join(daily, fundamentals, asof.Backward, 0)
			saleq := res.Column("saleq")

			// Jan 19: nothing published yet
			Expect(math.IsNaN(saleq[0])).To(BeTrue())
			// Mar 15: the Q4 report published Jan 20, never the Q1
			// report that arrives Apr 22
			Expect(saleq[1]).To(Equal(100.0))
			// Apr 22: the Q1 report, available that same day
			Expect(saleq[2]).To(Equal(110.0))
		})

		It("preserves left cardinality", func() {
			res := asof.Join(daily, fundamentals, asof.Backward, 0)
			Expect(res.Len()).To(Equal(daily.Len()))
			Expect(res.EntityKeys).To(Equal(daily.EntityKeys))
			Expect(res.Column("marketcap")).To(Equal(daily.Column("marketcap")))
		})

		It("never matches across entities", func() {
			other := frame.New("saleq")
			other.InsertRow("002", day(2020, 12, 31), day(2021, 1, 4), 999)
			res := asof.Join(daily, other, asof.Backward, 0)
			for _, v := range res.Column("saleq") {
				Expect(math.IsNaN(v)).To(BeTrue())
			}
		})

		It("honors the tolerance window", func() {
			res := asof.Join(daily, fundamentals, asof.Backward, 30*24*time.Hour)
			saleq := res.Column("saleq")
			// Mar 15 is 54 days after the Jan 20 publication
			Expect(math.IsNaN(saleq[1])).To(BeTrue())
			Expect(saleq[2]).To(Equal(110.0))
		})

		It("excludes rows without a known date", func() {
			fundamentals.InsertRow("001", day(2021, 3, 31), time.Time{}, 500)
			res := asof.Join(daily, fundamentals, asof.Backward, 0)
			Expect(res.Column("saleq")[2]).To(Equal(110.0))
		})
	})

	Describe("when joining forward", func() {
		It("selects the earliest report on or after each day", func() {
			res := asof.Join(daily, fundamentals, asof.Forward, 0)
			saleq := res.Column("saleq")
			Expect(saleq[0]).To(Equal(100.0))
			Expect(saleq[1]).To(Equal(110.0))
			Expect(saleq[2]).To(Equal(110.0))
		})
	})

	Describe("when column names collide", func() {
		It("panics", func() {
			clash := frame.New("marketcap")
			clash.InsertRow("001", day(2021, 1, 1), day(2021, 1, 1), 1)
			Expect(func() {
				asof.Join(daily, clash, asof.Backward, 0)
			}).To(Panic())
		})
	})
})
