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

package factors

import "errors"

var (
	// ErrUnknownFactor indicates the requested factor is not in the catalogue
	ErrUnknownFactor = errors.New("unknown factor")
	// ErrSchemaMismatch indicates a computed factor frame is missing its
	// output column or carries malformed row keys
	ErrSchemaMismatch = errors.New("factor result does not match expected schema")
)
