// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package abiutil

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrUnexpectedEvent = errors.New("unexpected event")
	ErrUnknownError    = errors.New("unknown error selector")
)

// MustParseABI parses is the same as calling abi.JSON
// but panics on error (if the given ABI is invalid).
func MustParseABI(json string) abi.ABI {
	val, err := abi.JSON(strings.NewReader(json))
	if err != nil {
		panic(fmt.Errorf("unable to parse ABI: %w", err))
	}
	return val
}

// UnpackLog decodes the log of the named event into out, a pointer to a
// struct whose fields are named after the camel cased event arguments.
func UnpackLog(a abi.ABI, out interface{}, event string, log types.Log) error {
	ev, ok := a.Events[event]
	if !ok {
		return fmt.Errorf("%w: %s not in abi", ErrUnexpectedEvent, event)
	}
	if len(log.Topics) == 0 || log.Topics[0] != ev.ID {
		return fmt.Errorf("%w: want %s", ErrUnexpectedEvent, event)
	}
	if len(log.Data) > 0 {
		if err := a.UnpackIntoInterface(out, event, log.Data); err != nil {
			return fmt.Errorf("unpack %s data: %w", event, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return fmt.Errorf("unpack %s topics: %w", event, err)
	}
	return nil
}

// DecodeError finds the custom error of the ABI whose selector prefixes the
// revert data and returns its name and unpacked arguments. Plain
// Error(string) reverts are decoded as well and reported with the name
// "Error".
func DecodeError(a abi.ABI, data []byte) (name string, args []interface{}, err error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("%w: short revert data", ErrUnknownError)
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return "Error", []interface{}{reason}, nil
	}
	for n, e := range a.Errors {
		if !bytes.Equal(e.ID[:4], data[:4]) {
			continue
		}
		v, err := e.Unpack(data)
		if err != nil {
			return "", nil, fmt.Errorf("unpack error %s: %w", n, err)
		}
		values, _ := v.([]interface{})
		return n, values, nil
	}
	return "", nil, fmt.Errorf("%w: %x", ErrUnknownError, data[:4])
}

// EncodeError packs a custom error of the ABI into revert data.
func EncodeError(a abi.ABI, name string, args ...interface{}) ([]byte, error) {
	e, ok := a.Errors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownError, name)
	}
	packed, err := e.Inputs.Pack(args...)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), e.ID[:4]...), packed...), nil
}
