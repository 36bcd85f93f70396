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

package frame

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Column arithmetic. All operations return a fresh slice and leave the frame
// untouched. NaN propagates: any operation with a NaN operand is NaN.

// Add returns a + b element-wise
func Add(df *Frame, a, b string) []float64 {
	out := df.ColumnCopy(a)
	floats.Add(out, df.Column(b))
	return out
}

// Sub returns a - b element-wise
func Sub(df *Frame, a, b string) []float64 {
	out := df.ColumnCopy(a)
	floats.Sub(out, df.Column(b))
	return out
}

// Mul returns a * b element-wise
func Mul(df *Frame, a, b string) []float64 {
	out := df.ColumnCopy(a)
	floats.Mul(out, df.Column(b))
	return out
}

// Div returns a / b element-wise. A zero denominator yields NaN rather than
// an infinity so downstream NaN filtering treats it as missing.
func Div(df *Frame, a, b string) []float64 {
	out := df.ColumnCopy(a)
	floats.Div(out, df.Column(b))
	sanitize(out)
	return out
}

// Scale returns the named column multiplied by the scalar c
func Scale(df *Frame, name string, c float64) []float64 {
	out := df.ColumnCopy(name)
	floats.Scale(c, out)
	return out
}

// AddScalar returns the named column with the scalar c added to each element
func AddScalar(df *Frame, name string, c float64) []float64 {
	out := df.ColumnCopy(name)
	floats.AddConst(c, out)
	return out
}

// DivVals returns a / b element-wise for raw columns of equal length. Zero
// denominators yield NaN.
func DivVals(a, b []float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	floats.Div(out, b)
	sanitize(out)
	return out
}

// MulVals returns a * b element-wise for raw columns of equal length
func MulVals(a, b []float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	floats.Mul(out, b)
	return out
}

// AddVals returns a + b element-wise for raw columns of equal length
func AddVals(a, b []float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	floats.Add(out, b)
	return out
}

// ScaleVals returns the raw column multiplied by the scalar c
func ScaleVals(a []float64, c float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	floats.Scale(c, out)
	return out
}

// AddScalarVals returns the raw column with the scalar c added to each element
func AddScalarVals(a []float64, c float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	floats.AddConst(c, out)
	return out
}

// SubVals returns a - b element-wise for raw columns of equal length
func SubVals(a, b []float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	floats.Sub(out, b)
	return out
}

// Round rounds each element to the given number of decimal places, half away
// from zero. NaN passes through.
func Round(vals []float64, decimals int) []float64 {
	pow := math.Pow(10, float64(decimals))
	out := make([]float64, len(vals))
	for idx, v := range vals {
		if math.IsNaN(v) {
			out[idx] = v
			continue
		}
		out[idx] = math.Round(v*pow) / pow
	}
	return out
}

func sanitize(vals []float64) {
	for idx, v := range vals {
		if math.IsInf(v, 0) {
			vals[idx] = math.NaN()
		}
	}
}
