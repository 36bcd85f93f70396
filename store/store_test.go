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

package store_test

import (
	"math"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-factors/frame"
	"github.com/penny-vault/pv-factors/store"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("Store", func() {
	var (
		dir  string
		stor *store.Store
		df   *frame.Frame
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "store_test")
		Expect(err).To(BeNil())

		stor, err = store.New(filepath.Join(dir, "tables"))
		Expect(err).To(BeNil())

		df = frame.New("marketcap", "f_sp")
		df.InsertRow("001690", day(2020, 3, 31), day(2020, 5, 15), 250.5, 0.1)
		df.InsertRow("001690", day(2020, 6, 30), day(2020, 8, 14), 260, math.NaN())
		df.InsertRow("012141", day(2020, 3, 31), time.Time{}, 1800.25, 0.05)
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	Describe("when round-tripping a frame", func() {
		BeforeEach(func() {
			Expect(stor.Save("marketcap", df)).To(Succeed())
		})

		It("preserves the row keys", func() {
			df2, err := stor.Load("marketcap")
			Expect(err).To(BeNil())
			Expect(df2.EntityKeys).To(Equal([]string{"001690", "001690", "012141"}))
			Expect(df2.RefDates).To(Equal(df.RefDates))
			Expect(df2.KnownDates[0]).To(Equal(day(2020, 5, 15)))
		})

		It("preserves a zero known date", func() {
			df2, err := stor.Load("marketcap")
			Expect(err).To(BeNil())
			Expect(df2.KnownDates[2].IsZero()).To(BeTrue())
		})

		It("preserves column order and values", func() {
			df2, err := stor.Load("marketcap")
			Expect(err).To(BeNil())
			Expect(df2.ColNames).To(Equal([]string{"marketcap", "f_sp"}))
			Expect(df2.Column("marketcap")).To(Equal([]float64{250.5, 260, 1800.25}))
			Expect(df2.Vals[1][0]).To(Equal(0.1))
		})

		It("preserves missing values", func() {
			df2, err := stor.Load("marketcap")
			Expect(err).To(BeNil())
			Expect(math.IsNaN(df2.Vals[1][1])).To(BeTrue())
		})

		It("leaves no temporary files behind", func() {
			entries, err := os.ReadDir(filepath.Join(dir, "tables"))
			Expect(err).To(BeNil())
			for _, entry := range entries {
				Expect(filepath.Ext(entry.Name())).NotTo(Equal(".tmp"))
			}
		})
	})

	Describe("when overwriting a table", func() {
		It("returns the most recent frame", func() {
			Expect(stor.Save("marketcap", df)).To(Succeed())

			df3 := frame.New("marketcap")
			df3.InsertRow("001690", day(2021, 3, 31), day(2021, 5, 15), 300)
			Expect(stor.Save("marketcap", df3)).To(Succeed())

			df2, err := stor.Load("marketcap")
			Expect(err).To(BeNil())
			Expect(df2.Len()).To(Equal(1))
			Expect(df2.Column("marketcap")).To(Equal([]float64{300}))
		})
	})

	Describe("when a table is absent or damaged", func() {
		It("reports a table that was never saved", func() {
			_, err := stor.Load("pricevol_processed")
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("reports a table with a missing manifest", func() {
			Expect(stor.Save("marketcap", df)).To(Succeed())
			Expect(os.Remove(filepath.Join(dir, "tables", "marketcap.toml"))).To(Succeed())

			_, err := stor.Load("marketcap")
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("reports a table with an unreadable manifest", func() {
			Expect(stor.Save("marketcap", df)).To(Succeed())
			manifestFn := filepath.Join(dir, "tables", "marketcap.toml")
			Expect(os.WriteFile(manifestFn, []byte("rows = 'three'\n"), 0o644)).To(Succeed())

			_, err := stor.Load("marketcap")
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("reports a table whose parquet file was modified", func() {
			Expect(stor.Save("marketcap", df)).To(Succeed())
			parquetFn := filepath.Join(dir, "tables", "marketcap.parquet")
			fh, err := os.OpenFile(parquetFn, os.O_APPEND|os.O_WRONLY, 0o644)
			Expect(err).To(BeNil())
			_, err = fh.Write([]byte{0xde, 0xad})
			Expect(err).To(BeNil())
			Expect(fh.Close()).To(Succeed())

			_, err = stor.Load("marketcap")
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("reports a table whose parquet file was deleted", func() {
			Expect(stor.Save("marketcap", df)).To(Succeed())
			Expect(os.Remove(filepath.Join(dir, "tables", "marketcap.parquet"))).To(Succeed())

			_, err := stor.Load("marketcap")
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})
})
