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
	"math"
	"sort"

	"github.com/penny-vault/pv-factors/frame"
)

// Profitability and quality factors. Most are ratios on the quarterly grid
// itself; only f_sgr needs the daily spine because its decile rank is taken
// cross-sectionally per trading day.

func init() {
	register(Factor{
		Name: "f_gpta",
		Desc: "gross profit to assets; Novy-Marx (2013)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "revtq", "cogsq", "atq")
			if err != nil {
				return nil, err
			}
			ttm(df, "revtq")
			ttm(df, "cogsq")

			gross := frame.Sub(df, "revtq_ltm", "cogsq_ltm")
			df.Insert("f_gpta", frame.DivVals(gross, df.Column("atq")))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_ol",
		Desc: "operating leverage: annual operating costs over assets; Novy-Marx (2011)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "xsgaq", "cogsq", "atq")
			if err != nil {
				return nil, err
			}
			ttm(df, "xsgaq")
			ttm(df, "cogsq")

			costs := frame.Add(df, "xsgaq_ltm", "cogsq_ltm")
			df.Insert("f_ol", frame.DivVals(costs, df.Column("atq")))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_roa",
		Desc: "trailing twelve month income to assets",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "ibq", "atq")
			if err != nil {
				return nil, err
			}
			ttm(df, "ibq")

			df.Insert("f_roa", frame.Div(df, "ibq_ltm", "atq"))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_rnoa",
		Desc: "return on average net operating assets; Soliman (2008)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "oiadpq", "atq", "cheq", "dlttq", "dlcq", "ceqq", "pstkq", "mibq")
			if err != nil {
				return nil, err
			}
			ttm(df, "oiadpq")
			insertNetOperatingAssets(df)
			lagged(df, "noaq", 4)

			avg := halfSum(df.Column("noaq"), df.Column("noaq_lag"))
			df.Insert("f_rnoa", frame.DivVals(df.Column("oiadpq_ltm"), avg))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_pm",
		Desc: "profit margin: operating income over sales; Soliman (2008)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "oiadpq", "saleq")
			if err != nil {
				return nil, err
			}
			ttm(df, "oiadpq")
			ttm(df, "saleq")

			df.Insert("f_pm", frame.Div(df, "oiadpq_ltm", "saleq_ltm"))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_at",
		Desc: "asset turnover: sales over average net operating assets; Soliman (2008)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "saleq", "atq", "cheq", "dlttq", "dlcq", "ceqq", "pstkq", "mibq")
			if err != nil {
				return nil, err
			}
			ttm(df, "saleq")
			insertNetOperatingAssets(df)
			lagged(df, "noaq", 4)

			avg := halfSum(df.Column("noaq"), df.Column("noaq_lag"))
			df.Insert("f_at", frame.DivVals(df.Column("saleq_ltm"), avg))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_opte",
		Desc: "operating profits to lagged book equity; Fama & French (2015)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "saleq", "cogsq", "xsgaq", "xintq", "seqq", "txditcq", "pstkq")
			if err != nil {
				return nil, err
			}
			for _, col := range []string{"saleq", "cogsq", "xsgaq", "xintq"} {
				ttm(df, col)
			}
			for _, col := range []string{"seqq", "txditcq", "pstkq"} {
				lagged(df, col, 4)
			}

			profit := frame.Sub(df, "saleq_ltm", "cogsq_ltm")
			profit = frame.SubVals(profit, df.Column("xsgaq_ltm"))
			profit = frame.SubVals(profit, df.Column("xintq_ltm"))

			be := frame.Add(df, "seqq_lag", "txditcq_lag")
			be = frame.SubVals(be, df.Column("pstkq_lag"))

			df.Insert("f_opte", frame.DivVals(profit, be))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_bl",
		Desc: "book leverage: assets over book equity",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "atq", "seqq", "txditcq", "pstkq")
			if err != nil {
				return nil, err
			}

			be := frame.Add(df, "seqq", "txditcq")
			be = frame.SubVals(be, df.Column("pstkq"))

			df.Insert("f_bl", frame.DivVals(df.Column("atq"), be))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_sgr",
		Desc: "cross-sectional decile rank of five year sales growth",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "saleq")
			if err != nil {
				return nil, err
			}
			ttm(df, "saleq")
			df.Insert("saleq_ltm_lag", frame.Lag(df, "saleq_ltm", 20))

			cagr := make([]float64, df.Len())
			ltm := df.Column("saleq_ltm")
			lag := df.Column("saleq_ltm_lag")
			for idx := range cagr {
				ratio := ltm[idx] / lag[idx]
				if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
					cagr[idx] = math.NaN()
					continue
				}
				cagr[idx] = math.Pow(ratio, 1.0/5.0) - 1
			}
			df.Insert("five_year_sales_cagr", cagr)
			df = df.DropNA("five_year_sales_cagr")

			res := eng.withMarketCap(df, "five_year_sales_cagr")
			res.Insert("f_sgr", decileByDate(res, "five_year_sales_cagr"))
			return res, nil
		},
	})
}

// insertNetOperatingAssets adds a `noaq` column: operating assets (assets
// less cash) minus operating liabilities (assets less all financing claims).
// The fetched frame must carry atq, cheq, dlttq, dlcq, ceqq, pstkq and mibq.
func insertNetOperatingAssets(df *frame.Frame) {
	operatingAssets := frame.Sub(df, "atq", "cheq")

	operatingLiabilities := frame.Sub(df, "atq", "dlttq")
	operatingLiabilities = frame.SubVals(operatingLiabilities, df.Column("dlcq"))
	operatingLiabilities = frame.SubVals(operatingLiabilities, df.Column("ceqq"))
	operatingLiabilities = frame.SubVals(operatingLiabilities, df.Column("pstkq"))
	operatingLiabilities = frame.SubVals(operatingLiabilities, df.Column("mibq"))

	df.Insert("noaq", frame.SubVals(operatingAssets, operatingLiabilities))
}

// decileByDate assigns each row a decile 1..10 of the named column within
// its reference date, ranking ties by row order. Rows whose value is NaN
// stay NaN.
func decileByDate(df *frame.Frame, name string) []float64 {
	col := df.Column(name)

	byDate := make(map[int64][]int)
	for rowIdx := range col {
		if math.IsNaN(col[rowIdx]) {
			continue
		}
		epoch := df.RefDates[rowIdx].UnixMilli()
		byDate[epoch] = append(byDate[epoch], rowIdx)
	}

	out := make([]float64, len(col))
	for idx := range out {
		out[idx] = math.NaN()
	}

	for _, rows := range byDate {
		order := make([]int, len(rows))
		copy(order, rows)
		sort.SliceStable(order, func(i, j int) bool {
			return col[order[i]] < col[order[j]]
		})
		n := len(order)
		for rank, rowIdx := range order {
			out[rowIdx] = float64(rank*10/n + 1)
		}
	}

	return out
}
