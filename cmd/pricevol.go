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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-factors/pricevol"
	"github.com/penny-vault/pv-factors/wrds"
)

func init() {
	rootCmd.AddCommand(pricevolCmd)
}

var pricevolCmd = &cobra.Command{
	Use:   "pricevol",
	Short: "Build and persist the processed price and volume table",
	Long: `Load daily prices, add split-adjusted closes and trailing and forward
one-year returns, and persist the result.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		defer setupEnv(ctx)()

		src := wrds.New()
		stor := openStore()

		prices, err := src.DailyPrices(ctx, nil, beginDate())
		if err != nil {
			log.Fatal().Err(err).Msg("could not load daily prices")
		}

		df := pricevol.Process(prices)
		if err := stor.Save(priceVolTableName, df); err != nil {
			log.Fatal().Err(err).Msg("could not persist price and volume table")
		}
		log.Info().Int("NumRows", df.Len()).Msg("price and volume table ready")
	},
}
