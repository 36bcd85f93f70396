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

	"github.com/penny-vault/pv-factors/factors"
	"github.com/penny-vault/pv-factors/wrds"
)

var combineFactors []string

func init() {
	combineCmd.Flags().StringArrayVar(&combineFactors, "factor", nil, "Factor column to include; repeatable. Default is the full catalogue")
	rootCmd.AddCommand(combineCmd)
}

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Build the wide combined factor table",
	Long: `Join every factor column onto the daily market cap spine and persist one
wide table with a row per company and trading day. Factors that have not
been computed yet are computed first.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		defer setupEnv(ctx)()

		src := wrds.New()
		stor := openStore()

		marketCap, err := loadOrBuildMarketCap(ctx, stor, src)
		if err != nil {
			log.Fatal().Err(err).Msg("could not build market cap table")
		}

		eng, err := factors.NewEngine(src, stor, marketCap, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create factor engine")
		}

		df, err := eng.Combine(ctx, combineFactors)
		if err != nil {
			log.Fatal().Err(err).Msg("could not build combined factor table")
		}
		log.Info().Int("NumRows", df.Len()).Int("NumCols", df.ColCount()).Msg("combined factor table ready")
	},
}
