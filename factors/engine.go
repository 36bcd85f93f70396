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

// Package factors derives point-in-time factor tables from quarterly and
// annual fundamentals joined against a daily market capitalization spine.
// Every derived value is attributed to the date the underlying report became
// public, so a factor read as-of any day reflects only information available
// on that day.
package factors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/penny-vault/pv-factors/asof"
	"github.com/penny-vault/pv-factors/common"
	"github.com/penny-vault/pv-factors/frame"
	"github.com/penny-vault/pv-factors/observability/opentelemetry"
)

// Source loads fundamentals. Quarterly rows carry the report date as the
// known date; annual rows have a zero known date because annual filings in
// the source carry no publication timestamp.
type Source interface {
	FundamentalsQuarterly(ctx context.Context, fields []string, entities []string) (*frame.Frame, error)
	FundamentalsAnnual(ctx context.Context, fields []string, entities []string) (*frame.Frame, error)
}

// Store persists computed tables between runs
type Store interface {
	Load(name string) (*frame.Frame, error)
	Save(name string, df *frame.Frame) error
}

const (
	memoCacheSize  = 64
	factorDecimals = 2
)

// Engine computes factors against a fixed market cap spine and entity scope.
// The spine and scope are set at construction and never change during a run;
// computing the same factor twice returns the memoized frame.
type Engine struct {
	source    Source
	store     Store
	marketCap *frame.Frame
	entities  []string
	memo      *common.ByteCache
	runID     string
}

// NewEngine creates an engine. A nil or empty entities slice means full
// scope: results are persisted to the store and prior results are reused.
// A restricted scope never reads or writes the store -- partial tables must
// not masquerade as full ones.
func NewEngine(source Source, store Store, marketCap *frame.Frame, entities []string) (*Engine, error) {
	memo, err := common.NewByteCache(memoCacheSize)
	if err != nil {
		return nil, err
	}

	if len(entities) > 0 {
		marketCap = filterEntities(marketCap, entities)
	}

	return &Engine{
		source:    source,
		store:     store,
		marketCap: marketCap,
		entities:  entities,
		memo:      memo,
		runID:     uuid.New().String(),
	}, nil
}

func (eng *Engine) fullScope() bool {
	return len(eng.entities) == 0
}

// Compute derives the named factor, serving it from the run memo or the
// store when already available. The returned frame has a single value column
// named after the factor; rows where the factor is undefined are dropped.
func (eng *Engine) Compute(ctx context.Context, name string) (*frame.Frame, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "factors.Compute")
	defer span.End()

	fac, ok := catalogue[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFactor, name)
	}

	subLog := log.With().Str("Factor", name).Str("RunID", eng.runID).Logger()

	if raw, ok := eng.memo.Get(eng.memoKey(name)); ok {
		df, err := decodeFrame(raw)
		if err == nil {
			subLog.Debug().Msg("factor served from run memo")
			return df, nil
		}
		subLog.Warn().Err(err).Msg("memo entry unreadable; recomputing")
	}

	if eng.fullScope() {
		if df, err := eng.store.Load(name); err == nil {
			subLog.Info().Int("NumRows", df.Len()).Msg("factor already computed")
			eng.memoAdd(name, df, subLog)
			return df, nil
		}
	}

	df, err := fac.Compute(ctx, eng)
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", name, err)
	}

	out, err := eng.finalize(name, df)
	if err != nil {
		return nil, err
	}

	if eng.fullScope() {
		if err := eng.store.Save(name, out); err != nil {
			return nil, fmt.Errorf("save %s: %w", name, err)
		}
	}

	eng.memoAdd(name, out, subLog)
	subLog.Info().Int("NumRows", out.Len()).Msg("factor computed")
	return out, nil
}

// ComputeAll runs every catalogued factor. Factors are independent: a
// failure is logged and its siblings still run; already persisted factors
// are untouched.
func (eng *Engine) ComputeAll(ctx context.Context) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "factors.ComputeAll")
	defer span.End()

	var failed []string
	for _, name := range Names() {
		if _, err := eng.Compute(ctx, name); err != nil {
			log.Error().Err(err).Str("Factor", name).Msg("factor computation failed")
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d factors failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// finalize validates a computed frame and reduces it to the persisted shape:
// the factor column only, undefined rows dropped, values rounded
func (eng *Engine) finalize(name string, df *frame.Frame) (*frame.Frame, error) {
	if df == nil || !df.HasCol(name) {
		return nil, fmt.Errorf("%w: output column %s missing", ErrSchemaMismatch, name)
	}
	for rowIdx, key := range df.EntityKeys {
		if key == "" {
			return nil, fmt.Errorf("%w: empty entity key at row %d", ErrSchemaMismatch, rowIdx)
		}
		if df.RefDates[rowIdx].IsZero() {
			return nil, fmt.Errorf("%w: zero reference date at row %d", ErrSchemaMismatch, rowIdx)
		}
	}

	out := df.SelectCols(name).DropNA(name)
	out.Vals[out.ColIndex(name)] = frame.Round(out.Column(name), factorDecimals)
	return out, nil
}

func (eng *Engine) memoKey(name string) string {
	return fmt.Sprintf("%s|%s", name, strings.Join(eng.entities, ","))
}

func (eng *Engine) memoAdd(name string, df *frame.Frame, subLog zerolog.Logger) {
	raw, err := encodeFrame(df)
	if err != nil {
		subLog.Warn().Err(err).Msg("could not encode frame for run memo")
		return
	}
	if err := eng.memo.Set(eng.memoKey(name), raw); err != nil {
		subLog.Warn().Err(err).Msg("could not memoize frame")
	}
}

// quarterly fetches quarterly fundamentals for the engine's scope, sorts
// them for per-entity transforms and applies the missing-value policy
func (eng *Engine) quarterly(ctx context.Context, fields ...string) (*frame.Frame, error) {
	df, err := eng.source.FundamentalsQuarterly(ctx, fields, eng.entities)
	if err != nil {
		return nil, err
	}
	df = df.SortByEntityRefDate()
	applyPolicy(df, fields)
	return df, nil
}

// annualOnQuarterly fetches both reporting frequencies and attaches the
// annual fields to the quarterly grid: each quarterly row carries the most
// recent annual value whose fiscal period had ended by the quarter's
// reference date. The result keeps the quarterly report dates, so a later
// market-data join still sees annual values only once a quarterly report
// has made them public.
func (eng *Engine) annualOnQuarterly(ctx context.Context, qFields, aFields []string) (*frame.Frame, error) {
	q, err := eng.quarterly(ctx, qFields...)
	if err != nil {
		return nil, err
	}

	a, err := eng.source.FundamentalsAnnual(ctx, aFields, eng.entities)
	if err != nil {
		return nil, err
	}
	a = a.SortByEntityRefDate()

	// the as-of join matches on known dates; annual rows have none, so
	// stand in their fiscal period end
	a2 := a.Copy()
	copy(a2.KnownDates, a2.RefDates)

	df := asof.Join(q, a2, asof.Backward, 0)
	applyPolicy(df, aFields)
	return df, nil
}

// annualWithReportDates fetches annual fields and stamps each row with the
// report date of the quarterly filing for the same fiscal period end. Annual
// rows with no matching quarterly filing are dropped -- without a report
// date they cannot be placed on the timeline.
func (eng *Engine) annualWithReportDates(ctx context.Context, aFields []string) (*frame.Frame, error) {
	a, err := eng.source.FundamentalsAnnual(ctx, aFields, eng.entities)
	if err != nil {
		return nil, err
	}

	q, err := eng.source.FundamentalsQuarterly(ctx, []string{"ibq"}, eng.entities)
	if err != nil {
		return nil, err
	}

	type entityPeriod struct {
		entityKey string
		refDate   int64
	}
	reportDates := make(map[entityPeriod]time.Time, q.Len())
	for rowIdx, key := range q.EntityKeys {
		reportDates[entityPeriod{key, q.RefDates[rowIdx].UnixMilli()}] = q.KnownDates[rowIdx]
	}

	keep := make([]int, 0, a.Len())
	stamped := a.Copy()
	for rowIdx, key := range a.EntityKeys {
		rdq, ok := reportDates[entityPeriod{key, a.RefDates[rowIdx].UnixMilli()}]
		if !ok {
			continue
		}
		stamped.KnownDates[rowIdx] = rdq
		keep = append(keep, rowIdx)
	}

	df := stamped.Select(keep).SortByEntityRefDate()
	applyPolicy(df, aFields)
	return df, nil
}

// withMarketCap joins the named fundamental columns onto the daily market
// cap spine with a backward as-of on the report date. Output rows are keyed
// (entity, trading day).
func (eng *Engine) withMarketCap(df *frame.Frame, cols ...string) *frame.Frame {
	return asof.Join(eng.marketCap, df.SelectCols(cols...), asof.Backward, 0)
}

// filterEntities returns only the rows whose entity key is in the scope
func filterEntities(df *frame.Frame, entities []string) *frame.Frame {
	scope := make(map[string]bool, len(entities))
	for _, key := range entities {
		scope[key] = true
	}

	keep := make([]int, 0, df.Len())
	for rowIdx, key := range df.EntityKeys {
		if scope[key] {
			keep = append(keep, rowIdx)
		}
	}
	return df.Select(keep)
}
