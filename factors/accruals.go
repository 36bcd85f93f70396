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

// Accrual factors compare year-over-year changes in balance-sheet positions
// to average assets. All deltas are taken against the value four quarters
// earlier.

func init() {
	register(Factor{
		Name: "f_oa",
		Desc: "operating accruals: non-cash working capital changes less depreciation; Sloan (1996)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			fields := []string{"actq", "atq", "cheq", "lctq", "dlcq", "txpq", "dpq"}
			df, err := eng.quarterly(ctx, fields...)
			if err != nil {
				return nil, err
			}
			for _, col := range fields {
				if col == "dpq" {
					continue
				}
				lagged(df, col, 4)
			}

			deltaCurrentAssets := frame.Sub(df, "actq", "actq_lag")
			deltaCash := frame.Sub(df, "cheq", "cheq_lag")
			deltaCurrentLiabilities := frame.Sub(df, "lctq", "lctq_lag")
			deltaShortTermDebt := frame.Sub(df, "dlcq", "dlcq_lag")
			deltaTaxesPayable := frame.Sub(df, "txpq", "txpq_lag")

			accruals := frame.SubVals(deltaCurrentAssets, deltaCash)
			liabilities := frame.SubVals(frame.SubVals(deltaCurrentLiabilities, deltaShortTermDebt), deltaTaxesPayable)
			accruals = frame.SubVals(accruals, liabilities)
			accruals = frame.SubVals(accruals, df.Column("dpq"))

			avg := halfSum(df.Column("atq"), df.Column("atq_lag"))
			df.Insert("f_oa", frame.DivVals(accruals, avg))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_ta",
		Desc: "total accruals: changes in working capital, non-current operating and financial positions; Richardson et al. (2005)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			qFields := []string{"actq", "atq", "cheq", "lctq", "dlcq", "ltq", "dlttq", "ivstq", "pstkq"}
			df, err := eng.annualOnQuarterly(ctx, qFields, []string{"ivao"})
			if err != nil {
				return nil, err
			}
			for _, col := range append(qFields, "ivao") {
				lagged(df, col, 4)
			}

			// current operating assets and liabilities
			deltaCOA := frame.SubVals(frame.Sub(df, "actq", "cheq"), frame.Sub(df, "actq_lag", "cheq_lag"))
			deltaCOL := frame.SubVals(frame.Sub(df, "lctq", "dlcq"), frame.Sub(df, "lctq_lag", "dlcq_lag"))

			// non-current operating assets and liabilities
			ncoa := frame.SubVals(frame.Sub(df, "atq", "actq"), df.Column("ivao"))
			ncoaLag := frame.SubVals(frame.Sub(df, "atq_lag", "actq_lag"), df.Column("ivao_lag"))
			deltaNCOA := frame.SubVals(ncoa, ncoaLag)

			ncol := frame.SubVals(frame.Sub(df, "ltq", "lctq"), df.Column("dlttq"))
			ncolLag := frame.SubVals(frame.Sub(df, "ltq_lag", "lctq_lag"), df.Column("dlttq_lag"))
			deltaNCOL := frame.SubVals(ncol, ncolLag)

			// financial assets and liabilities
			deltaFinAssets := frame.SubVals(frame.Add(df, "ivstq", "ivao"), frame.Add(df, "ivstq_lag", "ivao_lag"))
			finLiabilities := frame.AddVals(frame.Add(df, "dlttq", "dlcq"), df.Column("pstkq"))
			finLiabilitiesLag := frame.AddVals(frame.Add(df, "dlttq_lag", "dlcq_lag"), df.Column("pstkq_lag"))
			deltaFinLiabilities := frame.SubVals(finLiabilities, finLiabilitiesLag)

			accruals := frame.SubVals(deltaCOA, deltaCOL)
			accruals = frame.AddVals(accruals, frame.SubVals(deltaNCOA, deltaNCOL))
			accruals = frame.AddVals(accruals, frame.SubVals(deltaFinAssets, deltaFinLiabilities))

			avg := halfSum(df.Column("atq"), df.Column("atq_lag"))
			df.Insert("f_ta", frame.DivVals(accruals, avg))
			return df, nil
		},
	})

	register(Factor{
		Name: "f_nef",
		Desc: "net external finance: year over year change in equity and debt issuance; Bradshaw et al. (2006)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.annualOnQuarterly(ctx,
				[]string{"atq", "dvpsxq", "cshoq"},
				[]string{"prstkc", "sstk", "dltis", "dltr", "dlcch"})
			if err != nil {
				return nil, err
			}

			// cash dividends actually paid
			df.Insert("dvcq", frame.Mul(df, "dvpsxq", "cshoq"))
			ttm(df, "dvcq")
			df.Insert("dvcq_lag", frame.Lag(df, "dvcq_ltm", 4))

			// issuance items are annual totals already; no rolling sum
			for _, col := range []string{"atq", "prstkc", "sstk", "dltis", "dltr", "dlcch"} {
				lagged(df, col, 4)
			}

			equity := frame.SubVals(frame.Sub(df, "sstk", "prstkc"), df.Column("dvcq_ltm"))
			equityLag := frame.SubVals(frame.Sub(df, "sstk_lag", "prstkc_lag"), df.Column("dvcq_lag"))
			deltaEquity := frame.SubVals(equity, equityLag)

			debt := frame.SubVals(frame.Sub(df, "dltis", "dltr"), df.Column("dlcch"))
			debtLag := frame.SubVals(frame.Sub(df, "dltis_lag", "dltr_lag"), df.Column("dlcch_lag"))
			deltaDebt := frame.SubVals(debt, debtLag)

			avg := halfSum(df.Column("atq"), df.Column("atq_lag"))
			df.Insert("f_nef", frame.DivVals(frame.AddVals(deltaEquity, deltaDebt), avg))
			return df, nil
		},
	})
}
