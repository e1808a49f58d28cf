// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bigint renders big integers as decimal JSON strings, so wei
// amounts survive clients that parse numbers as float64.
package bigint

import (
	"encoding/json"
	"fmt"
	"math/big"
)

type BigInt struct {
	big.Int
}

func (i BigInt) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, i.String())), nil
}

func (i *BigInt) UnmarshalJSON(b []byte) error {
	var val string
	if err := json.Unmarshal(b, &val); err != nil {
		return err
	}
	if _, ok := i.SetString(val, 10); !ok {
		return fmt.Errorf("invalid integer %q", val)
	}
	return nil
}

func NewBigInt(x int64) *BigInt {
	b := new(BigInt)
	b.SetInt64(x)
	return b
}

// Wrap copies i. A nil i wraps to zero.
func Wrap(i *big.Int) *BigInt {
	if i == nil {
		return new(BigInt)
	}
	return &BigInt{*new(big.Int).Set(i)}
}
