// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock_test

import (
	"testing"

	"github.com/vrflottery/raffle/pkg/statestore/mock"
	"github.com/vrflottery/raffle/pkg/statestore/test"
	"github.com/vrflottery/raffle/pkg/storage"
)

func TestMockStateStore(t *testing.T) {
	test.Run(t, func(t *testing.T) (storage.StateStorer, func()) {
		return mock.NewStateStore(), func() {}
	})
}
