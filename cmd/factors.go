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
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-factors/factors"
	"github.com/penny-vault/pv-factors/wrds"
)

var (
	factorNames []string
	entityKeys  []string
)

func init() {
	factorsCmd.Flags().StringArrayVar(&factorNames, "factor", nil, "Factor to compute; repeatable. Default is the full catalogue")
	factorsCmd.Flags().StringSliceVar(&entityKeys, "entities", nil, "Restrict computation to the given gvkeys; results are not persisted")
	rootCmd.AddCommand(factorsCmd)
}

var factorsCmd = &cobra.Command{
	Use:   "factors",
	Short: "Compute point-in-time factor tables",
	Long: `Compute the factor catalogue (or a selection via --factor) against the
daily market cap spine. Already persisted factors are skipped. With
--entities the run is a sanity check: the store is neither read nor
written.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		defer setupEnv(ctx)()

		src := wrds.New()
		stor := openStore()

		marketCap, err := loadOrBuildMarketCap(ctx, stor, src)
		if err != nil {
			log.Fatal().Err(err).Msg("could not build market cap table")
		}

		eng, err := factors.NewEngine(src, stor, marketCap, entityKeys)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create factor engine")
		}

		names := factorNames
		if len(names) == 0 {
			names = factors.Names()
		}
		log.Info().Strs("Factors", names).Strs("Entities", entityKeys).Msg("computing factors")

		var failed []string
		for _, name := range names {
			df, err := eng.Compute(ctx, name)
			if err != nil {
				log.Error().Err(err).Str("Factor", name).Msg("factor computation failed")
				failed = append(failed, name)
				continue
			}
			if len(entityKeys) > 0 {
				// restricted scope is for eyeballing results
				log.Info().Str("Factor", name).Msg("computed factor\n" + df.Table())
			}
		}

		if len(failed) > 0 {
			log.Fatal().Str("Failed", strings.Join(failed, ", ")).Msg("some factors failed")
		}
	},
}
