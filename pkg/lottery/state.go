// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery

import (
	"errors"
	"fmt"
)

var ErrUnknownState = errors.New("unknown lottery state")

// State is the phase of the lottery.
type State uint8

const (
	// StateOpen accepts entries.
	StateOpen State = iota
	// StateCalculating waits for the random words that pick the winner.
	StateCalculating
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateCalculating:
		return "CALCULATING"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name as rendered by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "OPEN":
		*s = StateOpen
	case "CALCULATING":
		*s = StateCalculating
	default:
		return fmt.Errorf("%w: %q", ErrUnknownState, text)
	}
	return nil
}
