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

package common

import (
	"bytes"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pierrec/lz4/v4"
)

// ByteCache is an in-process LRU cache for serialized values. Entries are
// lz4 compressed before they are stored.
type ByteCache struct {
	lru *lru.Cache
}

func NewByteCache(size int) (*ByteCache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ByteCache{lru: l}, nil
}

func (c *ByteCache) Set(key string, raw []byte) error {
	packed, err := compress(raw)
	if err != nil {
		return err
	}
	c.lru.Add(key, packed)
	return nil
}

func (c *ByteCache) Get(key string) ([]byte, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	raw, err := decompress(v.([]byte))
	if err != nil {
		return nil, false
	}
	return raw, true
}

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(packed []byte) ([]byte, error) {
	var buf bytes.Buffer
	zr := lz4.NewReader(bytes.NewReader(packed))
	if _, err := buf.ReadFrom(zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
