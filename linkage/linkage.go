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

// Package linkage resolves traded security identifiers to the company that
// issued them. The mapping shifts over time as companies merge, spin off, and
// relist, so every link carries a validity interval and resolution is always
// relative to a date.
package linkage

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-factors/frame"
)

// openEndDate stands in for a link whose end is unset; far enough out that no
// data date ever reaches it
var openEndDate = time.Date(2059, 12, 31, 0, 0, 0, 0, time.UTC)

// Link maps a security identifier to a company entity key over a validity
// interval. A zero End means the link is still active.
type Link struct {
	EntityKey  string
	SecurityID string
	Start      time.Time
	End        time.Time
}

// Resolver answers which company a security belonged to on a given date
type Resolver struct {
	bySecurity map[string][]Link
}

// NewResolver builds a resolver from a link table. Links with a zero end date
// are treated as open-ended.
func NewResolver(links []Link) *Resolver {
	r := &Resolver{
		bySecurity: make(map[string][]Link),
	}
	for _, link := range links {
		if link.End.IsZero() {
			link.End = openEndDate
		}
		r.bySecurity[link.SecurityID] = append(r.bySecurity[link.SecurityID], link)
	}
	return r
}

// Resolve returns the entity key for a security on the given date. A link is
// valid only strictly inside its interval: start < date < end. When no link
// is valid the security is unresolvable; when more than one link is valid the
// mapping is ambiguous and the security is likewise unresolvable -- a wrong
// company attribution is worse than a dropped row.
func (r *Resolver) Resolve(securityID string, date time.Time) (string, bool) {
	var found string
	cnt := 0
	for _, link := range r.bySecurity[securityID] {
		if link.Start.Before(date) && link.End.After(date) {
			found = link.EntityKey
			cnt++
		}
	}
	if cnt != 1 {
		return "", false
	}
	return found, true
}

// MapFrame rewrites a frame keyed by security identifier into one keyed by
// company entity key, resolving each row at its reference date. Rows whose
// security cannot be resolved on that date are dropped; the count of dropped
// rows is returned alongside the new frame.
func (r *Resolver) MapFrame(df *frame.Frame) (*frame.Frame, int) {
	keep := make([]int, 0, df.Len())
	keys := make([]string, 0, df.Len())
	for rowIdx, securityID := range df.EntityKeys {
		entityKey, ok := r.Resolve(securityID, df.RefDates[rowIdx])
		if !ok {
			continue
		}
		keep = append(keep, rowIdx)
		keys = append(keys, entityKey)
	}

	dropped := df.Len() - len(keep)
	if dropped > 0 {
		log.Debug().Int("Dropped", dropped).Int("Kept", len(keep)).Msg("dropped rows with no unambiguous link")
	}

	out := df.Select(keep)
	out.EntityKeys = keys
	return out, dropped
}
