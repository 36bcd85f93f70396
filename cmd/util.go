// Copyright 2022-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-factors/common"
	"github.com/penny-vault/pv-factors/database"
	"github.com/penny-vault/pv-factors/frame"
	"github.com/penny-vault/pv-factors/linkage"
	"github.com/penny-vault/pv-factors/marketcap"
	"github.com/penny-vault/pv-factors/observability/opentelemetry"
	"github.com/penny-vault/pv-factors/store"
	"github.com/penny-vault/pv-factors/wrds"
)

const (
	marketCapTableName = "marketcap"
	priceVolTableName  = "pricevol_processed"
)

// setupEnv initializes logging, tracing and the database connection shared
// by every sub-command. The returned function flushes traces and must be
// deferred.
func setupEnv(ctx context.Context) func() {
	common.SetupLogging()

	shutdown, err := opentelemetry.Setup()
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize tracing")
	}

	if err := database.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	return func() {
		if err := shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("could not flush traces")
		}
	}
}

func openStore() *store.Store {
	stor, err := store.New(viper.GetString("store.path"))
	if err != nil {
		log.Fatal().Err(err).Str("Path", viper.GetString("store.path")).Msg("could not open table store")
	}
	return stor
}

// loadOrBuildMarketCap returns the daily market cap table, building and
// persisting it from daily prices and the link table when not already stored
func loadOrBuildMarketCap(ctx context.Context, stor *store.Store, src *wrds.Source) (*frame.Frame, error) {
	if df, err := stor.Load(marketCapTableName); err == nil {
		log.Info().Int("NumRows", df.Len()).Msg("market cap table already computed")
		return df, nil
	}

	links, err := src.LinkTable(ctx)
	if err != nil {
		return nil, err
	}
	resolver := linkage.NewResolver(links)

	prices, err := src.DailyPrices(ctx, nil, beginDate())
	if err != nil {
		return nil, err
	}

	df := marketcap.Build(prices, resolver)
	if err := stor.Save(marketCapTableName, df); err != nil {
		return nil, err
	}
	return df, nil
}

func beginDate() time.Time {
	return time.Date(viper.GetInt("wrds.start_year"), 1, 1, 0, 0, 0, 0, time.UTC)
}
