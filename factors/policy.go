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
	"github.com/penny-vault/pv-factors/frame"
)

// fillPolicy says how missing values in a fundamental field are treated
// before any derivation runs. Flow items (expenses, dividends, issuance) are
// zero when unreported. Balance-sheet stocks carry their last reported value
// forward for at most four quarters. Items where a missing value makes the
// derived factor undefined are left as NaN.
type fillPolicy int

const (
	noFill fillPolicy = iota
	zeroFill
	forwardFill
)

// forwardFillLimit is the maximum number of consecutive quarters a stale
// balance-sheet value may be carried.
const forwardFillLimit = 4

var fieldPolicy = map[string]fillPolicy{
	// flow items
	"dpq":    zeroFill,
	"xrdq":   zeroFill,
	"xsgaq":  zeroFill,
	"cogsq":  zeroFill,
	"xintq":  zeroFill,
	"dvpsxq": zeroFill,
	"cshopq": zeroFill,
	"prcraq": zeroFill,
	"capx":   zeroFill,
	"xad":    zeroFill,
	"sstk":   zeroFill,
	"prstkc": zeroFill,
	"dltis":  zeroFill,
	"dltr":   zeroFill,
	"dlcch":  zeroFill,

	// balance-sheet stocks
	"atq":     forwardFill,
	"actq":    forwardFill,
	"cheq":    forwardFill,
	"lctq":    forwardFill,
	"txpq":    forwardFill,
	"invtq":   forwardFill,
	"ppegtq":  forwardFill,
	"ppentq":  forwardFill,
	"seqq":    forwardFill,
	"txditcq": forwardFill,
	"pstkq":   forwardFill,
	"dlttq":   forwardFill,
	"dlcq":    forwardFill,
	"ceqq":    forwardFill,
	"mibq":    forwardFill,
	"mibtq":   forwardFill,
	"ltq":     forwardFill,
	"ivstq":   forwardFill,
	"cshoq":   forwardFill,
	"txdbq":   forwardFill,
	"ivao":    forwardFill,

	// undefined when missing
	"ibq":    noFill,
	"saleq":  noFill,
	"revtq":  noFill,
	"oiadpq": noFill,
	"oibdpq": noFill,
	"dvpq":   noFill,
}

// applyPolicy rewrites the named columns in place according to the field
// policy table. Fields absent from the table are left untouched. The frame
// must already be sorted by entity and reference date.
func applyPolicy(df *frame.Frame, fields []string) {
	for _, field := range fields {
		switch fieldPolicy[field] {
		case zeroFill:
			df.Vals[df.ColIndex(field)] = frame.FillConst(df, field, 0)
		case forwardFill:
			df.Vals[df.ColIndex(field)] = frame.ForwardFill(df, field, forwardFillLimit)
		}
	}
}
