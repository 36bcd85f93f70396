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

	"github.com/penny-vault/pv-factors/frame"
)

// Investment factors measure asset and capital expenditure growth. Capital
// expenditure is only reported annually, so these mix reporting frequencies.

func init() {
	register(Factor{
		Name: "f_aci",
		Desc: "abnormal capital investment relative to the trailing three years; Titman et al. (2004)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.annualOnQuarterly(ctx, []string{"saleq"}, []string{"capx"})
			if err != nil {
				return nil, err
			}
			ttm(df, "saleq")

			for _, lag := range []int{4, 8, 12} {
				lagged(df, "capx", lag)
				lagged(df, "saleq_ltm", lag)
			}

			historical := frame.DivVals(df.Column("capx_lag_8"), df.Column("saleq_ltm_lag_8"))
			historical = frame.AddVals(historical, frame.DivVals(df.Column("capx_lag_12"), df.Column("saleq_ltm_lag_12")))
			// the 4-quarter lags share the _lag suffix convention
			historical = frame.AddVals(historical, frame.DivVals(df.Column("capx_lag"), df.Column("saleq_ltm_lag")))
			historical = frame.ScaleVals(historical, 1.0/3.0)

			current := frame.Div(df, "capx", "saleq_ltm")
			df.Insert("f_aci", frame.AddScalarVals(frame.DivVals(current, historical), -1))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_ita",
		Desc: "investment to assets: growth rate of total assets; Cooper et al. (2008)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "atq")
			if err != nil {
				return nil, err
			}
			lagged(df, "atq", 4)

			growth := frame.Sub(df, "atq", "atq_lag")
			df.Insert("f_ita", frame.DivVals(growth, df.Column("atq_lag")))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_ppe",
		Desc: "change in property, plant & equipment and inventory scaled by lagged assets; Lyandres et al. (2008)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "invtq", "atq", "ppegtq")
			if err != nil {
				return nil, err
			}
			for _, col := range []string{"atq", "invtq", "ppegtq"} {
				lagged(df, col, 4)
			}

			change := frame.Sub(df, "ppegtq", "ppegtq_lag")
			change = frame.AddVals(change, frame.Sub(df, "invtq", "invtq_lag"))
			df.Insert("f_ppe", frame.DivVals(change, df.Column("atq_lag")))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_ig",
		Desc: "investment growth: year over year capital expenditure growth; Xing (2008)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.annualWithReportDates(ctx, []string{"capx"})
			if err != nil {
				return nil, err
			}
			// annual rows: one lag is one fiscal year
			lagged(df, "capx", 1)

			growth := frame.Sub(df, "capx", "capx_lag_1")
			df.Insert("f_ig", frame.DivVals(growth, df.Column("capx_lag_1")))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_ic",
		Desc: "inventory changes scaled by average assets; Thomas & Zhang (2002)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "invtq", "atq")
			if err != nil {
				return nil, err
			}
			for _, col := range []string{"atq", "invtq"} {
				lagged(df, col, 4)
			}

			change := frame.Sub(df, "invtq", "invtq_lag")
			avg := halfSum(df.Column("atq"), df.Column("atq_lag"))
			df.Insert("f_ic", frame.DivVals(change, avg))
			return df, nil
		},
	})
}
