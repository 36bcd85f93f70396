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

// Package pricevol derives split-adjusted prices and one-year return columns
// from the raw daily price table.
package pricevol

import (
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-factors/frame"
)

// tradingDaysPerYear is the conventional trading-day count used for the
// one-year return windows
const tradingDaysPerYear = 252

// Process returns a copy of the daily price frame with derived columns:
//
//	adjclose              price adjusted for splits (prc / cfacpr)
//	cum_ret_1y            trailing 1-year compounded total return
//	fwd_ret_1y            the same return observed 1 year ahead
//	cum_ret_1y_excl_div   trailing 1-year return excluding dividends
//	fwd_ret_1y_excl_div   the same return observed 1 year ahead
//
// The fwd columns read the future relative to their row and exist only as
// evaluation targets. Input must hold one row per security per trading day in
// ascending date order.
func Process(df *frame.Frame) *frame.Frame {
	out := df.Copy()

	log.Debug().Int("NumRows", out.Len()).Msg("computing adjusted close")
	out.Insert("adjclose", frame.Div(out, "prc", "cfacpr"))

	log.Debug().Msg("computing 1-year trailing returns")
	out.Insert("cum_ret_1y", frame.TrailingReturn(out, "ret", tradingDaysPerYear))
	out.Insert("fwd_ret_1y", frame.Lead(out, "cum_ret_1y", tradingDaysPerYear))

	log.Debug().Msg("computing 1-year trailing returns excluding dividends")
	out.Insert("cum_ret_1y_excl_div", frame.TrailingReturn(out, "retx", tradingDaysPerYear))
	out.Insert("fwd_ret_1y_excl_div", frame.Lead(out, "cum_ret_1y_excl_div", tradingDaysPerYear))

	return out
}
