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

	"github.com/penny-vault/pv-factors/wrds"
)

func init() {
	rootCmd.AddCommand(marketcapCmd)
}

var marketcapCmd = &cobra.Command{
	Use:   "marketcap",
	Short: "Build and persist the daily market capitalization table",
	Long: `Sum price times shares outstanding across every share class of a company
for each trading day and persist the result. Companies whose security link
is ambiguous on a given day are excluded for that day.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		defer setupEnv(ctx)()

		src := wrds.New()
		stor := openStore()

		df, err := loadOrBuildMarketCap(ctx, stor, src)
		if err != nil {
			log.Fatal().Err(err).Msg("could not build market cap table")
		}
		log.Info().Int("NumRows", df.Len()).Msg("market cap table ready")
	},
}
