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

// Financial constraint and asset liquidity factors.

// Kaplan-Zingales index coefficients; Lamont et al. (2001)
const (
	kzCashFlow  = -1.001909
	kzTobinsQ   = 0.2826389
	kzLeverage  = 3.139193
	kzDividends = -39.3678
	kzCash      = -1.314759
)

func init() {
	register(Factor{
		Name: "f_fc",
		Desc: "financial constraints: Kaplan-Zingales index; Lamont et al. (2001)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "ibq", "dpq", "ppentq", "atq", "seqq", "txdbq",
				"dlttq", "dlcq", "ceqq", "dvpsxq", "cshoq", "dvpq", "cheq")
			if err != nil {
				return nil, err
			}

			df.Insert("dvcq", frame.Mul(df, "dvpsxq", "cshoq"))
			for _, col := range []string{"ibq", "dpq", "dvcq", "dvpq"} {
				ttm(df, col)
			}
			lagged(df, "ppentq", 4)

			res := eng.withMarketCap(df, "ibq_ltm", "dpq_ltm", "dvcq_ltm", "dvpq_ltm",
				"ppentq_lag", "atq", "ceqq", "txdbq", "dlttq", "dlcq", "cheq")

			cashFlowToCapital := frame.DivVals(frame.Add(res, "ibq_ltm", "dpq_ltm"), res.Column("ppentq_lag"))

			tobinsQ := frame.Add(res, "atq", "marketcap")
			tobinsQ = frame.SubVals(tobinsQ, res.Column("ceqq"))
			tobinsQ = frame.SubVals(tobinsQ, res.Column("txdbq"))
			tobinsQ = frame.DivVals(tobinsQ, res.Column("atq"))

			totalDebt := frame.Add(res, "dlttq", "dlcq")
			leverage := frame.DivVals(totalDebt, frame.AddVals(totalDebt, res.Column("ceqq")))

			dividendsToCapital := frame.DivVals(frame.Add(res, "dvcq_ltm", "dvpq_ltm"), res.Column("ppentq_lag"))
			cashToCapital := frame.Div(res, "cheq", "ppentq_lag")

			kz := frame.ScaleVals(cashFlowToCapital, kzCashFlow)
			kz = frame.AddVals(kz, frame.ScaleVals(tobinsQ, kzTobinsQ))
			kz = frame.AddVals(kz, frame.ScaleVals(leverage, kzLeverage))
			kz = frame.AddVals(kz, frame.ScaleVals(dividendsToCapital, kzDividends))
			kz = frame.AddVals(kz, frame.ScaleVals(cashToCapital, kzCash))

			res.Insert("f_fc", kz)
			return res, nil
		},
	})

	register(Factor{
		Name: "f_bsal",
		Desc: "book-scaled asset liquidity; Ortiz-Molina & Phillips (2014)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "cheq", "atq", "actq", "ppentq")
			if err != nil {
				return nil, err
			}

			df.Insert("f_bsal", assetLiquidity(df, df.Column("atq")))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_msal",
		Desc: "market-scaled asset liquidity; Ortiz-Molina & Phillips (2014)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "cheq", "atq", "actq", "ppentq", "seqq", "txditcq", "pstkq")
			if err != nil {
				return nil, err
			}

			res := eng.withMarketCap(df, "cheq", "atq", "actq", "ppentq", "seqq", "txditcq", "pstkq")

			bookEquity := frame.Add(res, "seqq", "txditcq")
			bookEquity = frame.SubVals(bookEquity, res.Column("pstkq"))

			marketAssets := frame.SubVals(res.Column("atq"), bookEquity)
			marketAssets = frame.AddVals(marketAssets, res.Column("marketcap"))

			res.Insert("f_msal", assetLiquidity(res, marketAssets))
			return res, nil
		},
	})
}

// assetLiquidity scores how quickly the asset side of the balance sheet
// converts to cash: cash at full weight, other current assets at 0.75,
// property at 0.5, scaled by denom and negated so less liquid sorts higher
func assetLiquidity(df *frame.Frame, denom []float64) []float64 {
	score := frame.DivVals(df.Column("cheq"), denom)

	nonCashCurrent := frame.Sub(df, "actq", "cheq")
	score = frame.AddVals(score, frame.ScaleVals(frame.DivVals(nonCashCurrent, denom), 0.75))
	score = frame.AddVals(score, frame.ScaleVals(frame.DivVals(df.Column("ppentq"), denom), 0.5))

	return frame.ScaleVals(score, -1)
}
