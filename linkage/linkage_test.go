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

package linkage_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-factors/frame"
	"github.com/penny-vault/pv-factors/linkage"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("Resolver", func() {
	var resolver *linkage.Resolver

	BeforeEach(func() {
		resolver = linkage.NewResolver([]linkage.Link{
			{EntityKey: "C1", SecurityID: "S1", Start: day(2010, 1, 1), End: day(2020, 12, 31)},
			{EntityKey: "C2", SecurityID: "S1", Start: day(2020, 1, 1)},
			{EntityKey: "C3", SecurityID: "S2", Start: day(2015, 6, 1)},
		})
	})

	Describe("when a single link covers the date", func() {
		It("resolves to that entity", func() {
			entityKey, ok := resolver.Resolve("S1", day(2015, 3, 2))
			Expect(ok).To(BeTrue())
			Expect(entityKey).To(Equal("C1"))
		})

		It("treats a missing end date as open-ended", func() {
			entityKey, ok := resolver.Resolve("S2", day(2055, 1, 1))
			Expect(ok).To(BeTrue())
			Expect(entityKey).To(Equal("C3"))
		})
	})

	Describe("when interval boundaries are hit exactly", func() {
		It("excludes the start date", func() {
			_, ok := resolver.Resolve("S2", day(2015, 6, 1))
			Expect(ok).To(BeFalse())
		})

		It("excludes the end date", func() {
			entityKey, ok := resolver.Resolve("S1", day(2020, 12, 31))
			// the C1 link ends that day, leaving only C2 valid
			Expect(ok).To(BeTrue())
			Expect(entityKey).To(Equal("C2"))
		})
	})

	Describe("when links overlap", func() {
		It("resolves neither", func() {
			// both the C1 and C2 links for S1 cover mid-2020
			_, ok := resolver.Resolve("S1", day(2020, 6, 1))
			Expect(ok).To(BeFalse())
		})
	})

	Describe("when no link covers the date", func() {
		It("does not resolve", func() {
			_, ok := resolver.Resolve("S1", day(2005, 1, 1))
			Expect(ok).To(BeFalse())
		})

		It("does not resolve unknown securities", func() {
			_, ok := resolver.Resolve("S99", day(2020, 1, 1))
			Expect(ok).To(BeFalse())
		})
	})

	Describe("when mapping a frame", func() {
		It("rewrites keys and drops unresolvable rows", func() {
			df := frame.New("marketcap")
			df.InsertRow("S1", day(2015, 3, 2), day(2015, 3, 2), 1e9)
			df.InsertRow("S1", day(2020, 6, 1), day(2020, 6, 1), 2e9)
			df.InsertRow("S2", day(2020, 6, 1), day(2020, 6, 1), 3e9)

			mapped, dropped := resolver.MapFrame(df)
			Expect(dropped).To(Equal(1))
			Expect(mapped.Len()).To(Equal(2))
			Expect(mapped.EntityKeys).To(Equal([]string{"C1", "C3"}))
			Expect(mapped.Column("marketcap")).To(Equal([]float64{1e9, 3e9}))
		})
	})
})
