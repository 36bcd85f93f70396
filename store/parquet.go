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

package store

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/penny-vault/pv-factors/frame"
)

// tableRow is the long (melted) on-disk representation: one record per cell.
// Long format survives schema drift -- adding a factor column never rewrites
// an existing table's schema.
type tableRow struct {
	EntityKey string  `parquet:"name=entity_key, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	RefDate   int64   `parquet:"name=ref_date, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	KnownDate int64   `parquet:"name=known_date, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Column    string  `parquet:"name=column, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Value     float64 `parquet:"name=value, type=DOUBLE"`
}

func writeParquet(fn string, df *frame.Frame) error {
	fh, err := local.NewLocalFileWriter(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create local file")
		return err
	}
	defer fh.Close()

	pw, err := writer.NewParquetWriter(fh, new(tableRow), 4)
	if err != nil {
		log.Error().Err(err).Msg("could not create parquet writer")
		return err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	for rowIdx := range df.EntityKeys {
		for colIdx, colName := range df.ColNames {
			rec := tableRow{
				EntityKey: df.EntityKeys[rowIdx],
				RefDate:   df.RefDates[rowIdx].UTC().UnixMilli(),
				KnownDate: df.KnownDates[rowIdx].UTC().UnixMilli(),
				Column:    colName,
				Value:     df.Vals[colIdx][rowIdx],
			}
			if err := pw.Write(rec); err != nil {
				log.Error().Err(err).Str("EntityKey", rec.EntityKey).Str("Column", colName).Msg("parquet write failed for record")
				return err
			}
		}
	}

	if err := pw.WriteStop(); err != nil {
		log.Error().Err(err).Msg("parquet write failed")
		return err
	}

	return nil
}

type rowKey struct {
	entityKey string
	refDate   int64
	knownDate int64
}

func readParquet(fn string, columns []string) (*frame.Frame, error) {
	fh, err := local.NewLocalFileReader(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	pr, err := reader.NewParquetReader(fh, new(tableRow), 4)
	if err != nil {
		return nil, err
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	recs := make([]tableRow, num)
	if err := pr.Read(&recs); err != nil {
		return nil, err
	}

	colIdx := make(map[string]int, len(columns))
	for idx, colName := range columns {
		colIdx[colName] = idx
	}

	// rebuild wide rows in first-seen order; writeParquet emits cells
	// row-major so this reproduces the saved row order exactly
	df := frame.New(columns...)
	rowIdx := make(map[rowKey]int)
	for _, rec := range recs {
		key := rowKey{
			entityKey: rec.EntityKey,
			refDate:   rec.RefDate,
			knownDate: rec.KnownDate,
		}
		idx, ok := rowIdx[key]
		if !ok {
			idx = df.Len()
			rowIdx[key] = idx
			blank := make([]float64, len(columns))
			df.InsertRow(rec.EntityKey, time.UnixMilli(rec.RefDate).UTC(), time.UnixMilli(rec.KnownDate).UTC(), blank...)
		}
		cIdx, ok := colIdx[rec.Column]
		if !ok {
			log.Warn().Str("Column", rec.Column).Msg("table holds a column the manifest does not list; skipping")
			continue
		}
		df.Vals[cIdx][idx] = rec.Value
	}

	return df, nil
}
