// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package syncutil holds small synchronization helpers.
package syncutil

import "sync"

// Signaler broadcasts a one time event, such as a shutdown, to any number
// of goroutines selecting on C. Signal may be called any number of times
// from any goroutine.
type Signaler struct {
	C    chan struct{}
	once sync.Once
}

func NewSignaler() *Signaler {
	return &Signaler{C: make(chan struct{})}
}

// Signal closes C on the first call.
func (s *Signaler) Signal() {
	s.once.Do(func() {
		close(s.C)
	})
}

// Signaled reports whether Signal has been called.
func (s *Signaler) Signaled() bool {
	select {
	case <-s.C:
		return true
	default:
		return false
	}
}
