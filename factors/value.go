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

// Value factors scale a fundamental quantity by the market's price for the
// company. All of them join the daily market cap spine backward on the
// report date.

func init() {
	register(Factor{
		Name: "f_sp",
		Desc: "trailing twelve month sales to market cap",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "saleq")
			if err != nil {
				return nil, err
			}
			ttm(df, "saleq")

			res := eng.withMarketCap(df, "saleq_ltm")
			res.Insert("f_sp", frame.Div(res, "saleq_ltm", "marketcap"))
			return res, nil
		},
	})

	register(Factor{
		Name: "f_btm",
		Desc: "book equity to market cap; Rosenberg et al. (1985)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "seqq", "txditcq", "pstkq")
			if err != nil {
				return nil, err
			}

			// book equity = stockholders' equity + deferred taxes -
			// preferred stock
			be := frame.SubVals(frame.Add(df, "seqq", "txditcq"), df.Column("pstkq"))
			df.Insert("be", be)

			res := eng.withMarketCap(df, "be")
			res.Insert("f_btm", frame.Div(res, "be", "marketcap"))
			return res, nil
		},
	})

	register(Factor{
		Name: "f_dtm",
		Desc: "total debt to market cap",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "dlttq", "dlcq")
			if err != nil {
				return nil, err
			}
			df.Insert("total_debt", frame.Add(df, "dlttq", "dlcq"))

			res := eng.withMarketCap(df, "total_debt")
			res.Insert("f_dtm", frame.Div(res, "total_debt", "marketcap"))
			return res, nil
		},
	})

	register(Factor{
		Name: "f_ep",
		Desc: "trailing twelve month earnings to market cap",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "ibq")
			if err != nil {
				return nil, err
			}
			ttm(df, "ibq")

			res := eng.withMarketCap(df, "ibq_ltm")
			res.Insert("f_ep", frame.Div(res, "ibq_ltm", "marketcap"))
			return res, nil
		},
	})

	register(Factor{
		Name: "f_cfp",
		Desc: "trailing twelve month cash flow to market cap; Lakonishok et al. (1994)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "ibq", "dpq")
			if err != nil {
				return nil, err
			}
			df.Insert("cashflow", frame.Add(df, "ibq", "dpq"))
			ttm(df, "cashflow")

			res := eng.withMarketCap(df, "cashflow_ltm")
			res.Insert("f_cfp", frame.Div(res, "cashflow_ltm", "marketcap"))
			return res, nil
		},
	})

	register(Factor{
		Name: "f_py",
		Desc: "trailing twelve month payout (dividends + repurchases) to market cap; Boudoukh et al. (2007)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "dvpsxq", "cshoq", "cshopq", "prcraq")
			if err != nil {
				return nil, err
			}

			dividends := frame.Mul(df, "dvpsxq", "cshoq")
			repurchases := frame.Mul(df, "cshopq", "prcraq")
			df.Insert("payout", frame.AddVals(dividends, repurchases))
			ttm(df, "payout")

			res := eng.withMarketCap(df, "payout_ltm")
			res.Insert("f_py", frame.Div(res, "payout_ltm", "marketcap"))
			return res, nil
		},
	})

	register(Factor{
		Name: "f_evm",
		Desc: "enterprise value to trailing twelve month EBITDA",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "dlttq", "dlcq", "mibtq", "cheq", "pstkq", "oibdpq")
			if err != nil {
				return nil, err
			}
			ttm(df, "oibdpq")

			res := eng.withMarketCap(df, "dlttq", "dlcq", "mibtq", "cheq", "pstkq", "oibdpq_ltm")

			ev := frame.Add(res, "marketcap", "dlttq")
			ev = frame.AddVals(ev, res.Column("dlcq"))
			ev = frame.AddVals(ev, res.Column("mibtq"))
			ev = frame.SubVals(ev, res.Column("cheq"))
			ev = frame.AddVals(ev, res.Column("pstkq"))
			res.Insert("ev", ev)

			res.Insert("f_evm", frame.Div(res, "ev", "oibdpq_ltm"))
			return res, nil
		},
	})

	register(Factor{
		Name: "f_adp",
		Desc: "advertising expense to market cap (annual only)",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.annualWithReportDates(ctx, []string{"xad"})
			if err != nil {
				return nil, err
			}

			res := eng.withMarketCap(df, "xad")
			res.Insert("f_adp", frame.Div(res, "xad", "marketcap"))
			return res, nil
		},
	})

	register(Factor{
		Name: "f_rdp",
		Desc: "trailing twelve month R&D expense to market cap",
		Compute: func(ctx context.Context, eng *Engine) (*frame.Frame, error) {
			df, err := eng.quarterly(ctx, "xrdq")
			if err != nil {
				return nil, err
			}
			ttm(df, "xrdq")

			res := eng.withMarketCap(df, "xrdq_ltm")
			res.Insert("f_rdp", frame.Div(res, "xrdq_ltm", "marketcap"))
			return res, nil
		},
	})
}
