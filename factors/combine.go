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
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/penny-vault/pv-factors/asof"
	"github.com/penny-vault/pv-factors/frame"
	"github.com/penny-vault/pv-factors/observability/opentelemetry"
)

// CombinedTableName is the store name of the wide factor table
const CombinedTableName = "factors_combined"

// Combine joins the named factor columns onto the daily market cap spine
// with a backward as-of per factor, yielding one wide row per entity and
// trading day. A nil names slice combines the whole catalogue. Entities
// carrying duplicate (entity, day) rows are unreliable and both copies are
// dropped. At full scope the result is persisted as factors_combined.
func (eng *Engine) Combine(ctx context.Context, names []string) (*frame.Frame, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "factors.Combine")
	defer span.End()

	if len(names) == 0 {
		names = Names()
	}

	combined := eng.marketCap.Copy()
	for _, name := range names {
		df, err := eng.Compute(ctx, name)
		if err != nil {
			return nil, err
		}
		combined = asof.Join(combined, df, asof.Backward, 0)
	}

	before := combined.Len()
	combined = dropDuplicateKeys(combined)
	if dropped := before - combined.Len(); dropped > 0 {
		log.Warn().Int("NumRows", dropped).Msg("dropped rows with duplicate entity/day keys from combined table")
	}

	if eng.fullScope() {
		if err := eng.store.Save(CombinedTableName, combined); err != nil {
			return nil, fmt.Errorf("save %s: %w", CombinedTableName, err)
		}
	}

	log.Info().Int("NumRows", combined.Len()).Int("NumFactors", len(names)).Msg("combined factor table built")
	return combined, nil
}

// dropDuplicateKeys removes every row whose (entity, reference date) pair
// appears more than once. Neither copy survives: with conflicting rows there
// is no principled way to pick one.
func dropDuplicateKeys(df *frame.Frame) *frame.Frame {
	type rowKey struct {
		entityKey string
		refDate   int64
	}

	counts := make(map[rowKey]int, df.Len())
	for rowIdx, key := range df.EntityKeys {
		counts[rowKey{key, df.RefDates[rowIdx].UnixMilli()}]++
	}

	keep := make([]int, 0, df.Len())
	for rowIdx, key := range df.EntityKeys {
		if counts[rowKey{key, df.RefDates[rowIdx].UnixMilli()}] == 1 {
			keep = append(keep, rowIdx)
		}
	}
	return df.Select(keep)
}
