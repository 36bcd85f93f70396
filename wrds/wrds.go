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

// Package wrds reads company fundamentals, daily security prices, and the
// security-to-company link table from a WRDS postgres mirror. Every read runs
// inside a single transaction so a long extraction sees a consistent snapshot.
package wrds

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/penny-vault/pv-factors/database"
	"github.com/penny-vault/pv-factors/frame"
	"github.com/penny-vault/pv-factors/linkage"
	"github.com/penny-vault/pv-factors/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// Source fetches point-in-time company and security data
type Source struct{}

func New() *Source {
	return &Source{}
}

// fundamental values arrive with inconsistent precision across vintages;
// normalize to 2 decimals at the boundary
const valueDecimals = 2

// FundamentalsQuarterly fetches the requested quarterly fundamental fields.
// Returned frame is keyed by company (gvkey), reference date is the fiscal
// period end (datadate), and known date is the report date (rdq). Rows are
// ordered by report date ascending. An empty entities slice fetches all
// companies.
func (src *Source) FundamentalsQuarterly(ctx context.Context, fields []string, entities []string) (*frame.Frame, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "FundamentalsQuarterly")
	defer span.End()

	if err := checkFields(fields); err != nil {
		return nil, err
	}

	fieldSQL := make([]string, 0, len(fields))
	for _, field := range fields {
		fieldSQL = append(fieldSQL, fmt.Sprintf("f.%s", field))
	}

	sql := fmt.Sprintf(`SELECT f.gvkey, f.datadate, f.rdq, %s
FROM comp.fundq f
WHERE f.indfmt = 'INDL'
AND f.datafmt = 'STD'
AND f.consol = 'C'
AND f.popsrc = 'D'
AND f.curncdq = 'USD'
AND f.fyearq >= $1
AND f.rdq IS NOT NULL
AND f.datadate IS NOT NULL%s
ORDER BY f.rdq ASC`, strings.Join(fieldSQL, ", "), entityFilter(entities, 2))

	return src.queryFundamentals(ctx, sql, fields, entities, true)
}

// FundamentalsAnnual fetches the requested annual fundamental fields. Annual
// filings carry no report date, so the known date of every row is zero; the
// caller must attach publication dates before any point-in-time join.
func (src *Source) FundamentalsAnnual(ctx context.Context, fields []string, entities []string) (*frame.Frame, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "FundamentalsAnnual")
	defer span.End()

	if err := checkFields(fields); err != nil {
		return nil, err
	}

	fieldSQL := make([]string, 0, len(fields))
	for _, field := range fields {
		fieldSQL = append(fieldSQL, fmt.Sprintf("f.%s", field))
	}

	sql := fmt.Sprintf(`SELECT f.gvkey, f.datadate, %s
FROM comp.funda f
WHERE f.indfmt = 'INDL'
AND f.datafmt = 'STD'
AND f.consol = 'C'
AND f.popsrc = 'D'
AND f.curncd = 'USD'
AND f.fyear >= $1
AND f.datadate IS NOT NULL%s
ORDER BY f.datadate ASC`, strings.Join(fieldSQL, ", "), entityFilter(entities, 2))

	return src.queryFundamentals(ctx, sql, fields, entities, false)
}

func (src *Source) queryFundamentals(ctx context.Context, sql string, fields, entities []string, hasKnownDate bool) (*frame.Frame, error) {
	subLog := log.With().Strs("Fields", fields).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not get database transaction")
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}

	args := []interface{}{viper.GetInt("wrds.start_year")}
	if len(entities) > 0 {
		args = append(args, entities)
	}

	rows, err := trx.Query(ctx, sql, args...)
	if err != nil {
		subLog.Error().Stack().Err(err).Str("SQL", sql).Msg("fundamentals query failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}

	df := frame.New(fields...)
	for rows.Next() {
		var gvkey string
		var refDate time.Time
		var knownDate time.Time

		vals := make([]*float64, len(fields))
		args := make([]interface{}, 0, len(fields)+3)
		args = append(args, &gvkey, &refDate)
		if hasKnownDate {
			args = append(args, &knownDate)
		}
		for idx := range vals {
			args = append(args, &vals[idx])
		}

		if err := rows.Scan(args...); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not scan fundamentals row")
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
		}

		rowVals := make([]float64, len(fields))
		for idx, v := range vals {
			rowVals[idx] = roundedOrNaN(v)
		}
		df.InsertRow(gvkey, refDate, knownDate, rowVals...)
	}

	if err := rows.Err(); err != nil {
		subLog.Error().Stack().Err(err).Msg("fundamentals query read failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
	}

	subLog.Debug().Int("NumRows", df.Len()).Msg("fetched fundamentals")
	return df, nil
}

// DailyPrices fetches daily price, return, and share data for the given
// securities; an empty slice fetches all. Returned frame is keyed by security
// (permno) with the trading date as both reference and known date. The permco
// share-class grouping key rides along as a value column.
func (src *Source) DailyPrices(ctx context.Context, securities []string, begin time.Time) (*frame.Frame, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "DailyPrices")
	defer span.End()

	cols := []string{"permco", "prc", "ret", "retx", "vol", "shrout", "cfacpr", "cfacshr"}
	sql := fmt.Sprintf(`SELECT a.permno::text, a.permco, a.date, a.prc, a.ret, a.retx, a.vol, a.shrout, a.cfacpr, a.cfacshr
FROM crsp.dsf a
WHERE a.date >= $1%s
ORDER BY a.date ASC, a.permno ASC`, securityFilter(securities, 2))

	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not get database transaction")
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}

	args := []interface{}{begin}
	if len(securities) > 0 {
		args = append(args, securities)
	}

	rows, err := trx.Query(ctx, sql, args...)
	if err != nil {
		span.SetStatus(codes.Error, "daily price query failed")
		log.Error().Stack().Err(err).Str("SQL", sql).Msg("daily price query failed")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}

	df := frame.New(cols...)
	for rows.Next() {
		var permno string
		var permco float64
		var tradeDate time.Time
		vals := make([]*float64, len(cols)-1)

		args := []interface{}{&permno, &permco, &tradeDate}
		for idx := range vals {
			args = append(args, &vals[idx])
		}

		if err := rows.Scan(args...); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan daily price row")
			if err := trx.Rollback(ctx); err != nil {
				log.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
		}

		rowVals := make([]float64, 0, len(cols))
		rowVals = append(rowVals, permco)
		for _, v := range vals {
			if v == nil {
				rowVals = append(rowVals, math.NaN())
			} else {
				rowVals = append(rowVals, *v)
			}
		}
		df.InsertRow(permno, tradeDate, tradeDate, rowVals...)
	}

	if err := rows.Err(); err != nil {
		log.Error().Stack().Err(err).Msg("daily price query read failed")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not commit transaction")
	}

	log.Debug().Int("NumRows", df.Len()).Msg("fetched daily prices")
	return df, nil
}

// LinkTable fetches the security-to-company link table. Only standard links
// (LU, LC) with a primary marker are considered; share classes of the same
// company collapse to a single link per validity interval. Open-ended links
// come back with the far-future end date applied by the source query.
func (src *Source) LinkTable(ctx context.Context) ([]linkage.Link, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "LinkTable")
	defer span.End()

	sql := `SELECT DISTINCT gvkey, lpermco::text, linkdt, COALESCE(linkenddt, '2059-12-31') AS linkenddt
FROM crsp.ccmxpf_linktable
WHERE linktype IN ('LU', 'LC')
AND linkprim IN ('P', 'J', 'C')
AND lpermno IS NOT NULL`

	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not get database transaction")
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}

	rows, err := trx.Query(ctx, sql)
	if err != nil {
		log.Error().Stack().Err(err).Str("SQL", sql).Msg("link table query failed")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}

	links := make([]linkage.Link, 0, 100)
	for rows.Next() {
		var gvkey, permco string
		var linkStart *time.Time
		var linkEnd time.Time
		if err := rows.Scan(&gvkey, &permco, &linkStart, &linkEnd); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan link table row")
			if err := trx.Rollback(ctx); err != nil {
				log.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
		}

		link := linkage.Link{
			EntityKey:  gvkey,
			SecurityID: permco,
			End:        linkEnd,
		}
		if linkStart != nil {
			link.Start = *linkStart
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		log.Error().Stack().Err(err).Msg("link table query read failed")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not commit transaction")
	}

	log.Debug().Int("NumLinks", len(links)).Msg("fetched link table")
	return links, nil
}

func entityFilter(entities []string, argPos int) string {
	if len(entities) == 0 {
		return ""
	}
	return fmt.Sprintf("\nAND f.gvkey = ANY($%d)", argPos)
}

func securityFilter(securities []string, argPos int) string {
	if len(securities) == 0 {
		return ""
	}
	return fmt.Sprintf("\nAND a.permno::text = ANY($%d)", argPos)
}

// checkFields verifies that field names are plain lowercase identifiers; they
// are interpolated into the select list and must never carry SQL.
func checkFields(fields []string) error {
	for _, field := range fields {
		if field == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidField)
		}
		for _, r := range field {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
				return fmt.Errorf("%w: %s", ErrInvalidField, field)
			}
		}
	}
	return nil
}

func roundedOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	pow := math.Pow(10, valueDecimals)
	return math.Round(*v*pow) / pow
}
