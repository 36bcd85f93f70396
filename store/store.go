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

// Package store persists frames as parquet tables with a toml manifest
// sidecar. The manifest carries a blake3 checksum of the parquet file; a
// table without a matching manifest is treated as absent, so a crashed or
// interrupted writer can never masquerade as a valid cache entry.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"

	"github.com/penny-vault/pv-factors/frame"
)

var (
	ErrNotFound = errors.New("table not found")
)

// Store reads and writes named frames under a base directory
type Store struct {
	path string
}

type manifest struct {
	Rows     int       `toml:"rows"`
	Columns  []string  `toml:"columns"`
	Checksum string    `toml:"checksum"`
	Created  time.Time `toml:"created"`
}

// New creates a store rooted at path, creating the directory if needed
func New(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o775); err != nil {
		return nil, fmt.Errorf("could not create store directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Save writes the frame under the given name. The parquet table and its
// manifest are each written to a temporary file and renamed into place; the
// manifest goes last, so a reader only ever sees a fully written table.
func (store *Store) Save(name string, df *frame.Frame) error {
	subLog := log.With().Str("Name", name).Logger()

	parquetFn := filepath.Join(store.path, fmt.Sprintf("%s.parquet", name))
	tmpFn := parquetFn + tmpSuffix()

	if err := writeParquet(tmpFn, df); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not write parquet table")
		removeQuietly(tmpFn)
		return err
	}
	if err := os.Rename(tmpFn, parquetFn); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not move parquet table into place")
		removeQuietly(tmpFn)
		return err
	}

	checksum, err := checksumFile(parquetFn)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not checksum parquet table")
		return err
	}

	m := manifest{
		Rows:     df.Len(),
		Columns:  df.ColNames,
		Checksum: checksum,
		Created:  time.Now().UTC(),
	}
	raw, err := toml.Marshal(m)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not marshal manifest")
		return err
	}

	manifestFn := filepath.Join(store.path, fmt.Sprintf("%s.toml", name))
	tmpManifestFn := manifestFn + tmpSuffix()
	if err := os.WriteFile(tmpManifestFn, raw, 0o644); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not write manifest")
		removeQuietly(tmpManifestFn)
		return err
	}
	if err := os.Rename(tmpManifestFn, manifestFn); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not move manifest into place")
		removeQuietly(tmpManifestFn)
		return err
	}

	subLog.Debug().Int("NumRows", df.Len()).Msg("saved table")
	return nil
}

// Load reads the named frame. Returns ErrNotFound when the table is absent,
// its manifest is missing or unreadable, or the checksum does not match.
func (store *Store) Load(name string) (*frame.Frame, error) {
	subLog := log.With().Str("Name", name).Logger()

	manifestFn := filepath.Join(store.path, fmt.Sprintf("%s.toml", name))
	raw, err := os.ReadFile(manifestFn)
	if err != nil {
		return nil, ErrNotFound
	}

	var m manifest
	if err := toml.Unmarshal(raw, &m); err != nil {
		subLog.Warn().Err(err).Msg("manifest is unreadable; treating table as absent")
		return nil, ErrNotFound
	}

	parquetFn := filepath.Join(store.path, fmt.Sprintf("%s.parquet", name))
	checksum, err := checksumFile(parquetFn)
	if err != nil {
		return nil, ErrNotFound
	}
	if checksum != m.Checksum {
		subLog.Warn().Str("Expected", m.Checksum).Str("Actual", checksum).Msg("checksum mismatch; treating table as absent")
		return nil, ErrNotFound
	}

	df, err := readParquet(parquetFn, m.Columns)
	if err != nil {
		subLog.Warn().Err(err).Msg("parquet table is unreadable; treating table as absent")
		return nil, ErrNotFound
	}
	if df.Len() != m.Rows {
		subLog.Warn().Int("Expected", m.Rows).Int("Actual", df.Len()).Msg("row count mismatch; treating table as absent")
		return nil, ErrNotFound
	}

	return df, nil
}

func checksumFile(fn string) (string, error) {
	raw, err := os.ReadFile(fn)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// tmpSuffix returns a random suffix so concurrent writers never clobber each
// other's temporary files
func tmpSuffix() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		log.Panic().Err(err).Msg("could not read random bytes")
	}
	return fmt.Sprintf(".%s.tmp", hex.EncodeToString(buf[:]))
}

func removeQuietly(fn string) {
	if err := os.Remove(fn); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("FileName", fn).Msg("could not remove temporary file")
	}
}
