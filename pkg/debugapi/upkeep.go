// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

import (
	"errors"
	"net/http"

	"github.com/vrflottery/raffle/pkg/bigint"
	"github.com/vrflottery/raffle/pkg/jsonhttp"
	"github.com/vrflottery/raffle/pkg/lottery"
)

type checkUpkeepResponse struct {
	UpkeepNeeded bool   `json:"upkeepNeeded"`
	Checks       uint64 `json:"checks"`
	Performs     uint64 `json:"performs"`
}

type performUpkeepResponse struct {
	Performed bool           `json:"performed"`
	RequestID *bigint.BigInt `json:"requestId,omitempty"`
}

func (s *Service) checkUpkeepHandler(w http.ResponseWriter, r *http.Request) {
	if s.lottery == nil {
		jsonhttp.ServiceUnavailable(w, "lottery not deployed")
		return
	}
	st, err := s.lottery.Status(r.Context())
	if err != nil {
		s.logger.Debugf("debug api: check upkeep: %v", err)
		s.logger.Error("debug api: check upkeep")
		jsonhttp.InternalServerError(w, "check upkeep")
		return
	}
	resp := checkUpkeepResponse{UpkeepNeeded: st.UpkeepNeeded}
	if s.keeper != nil {
		stats := s.keeper.Stats()
		resp.Checks = stats.Checks
		resp.Performs = stats.Performs
	}
	jsonhttp.OK(w, resp)
}

func (s *Service) performUpkeepHandler(w http.ResponseWriter, r *http.Request) {
	if s.keeper == nil {
		jsonhttp.ServiceUnavailable(w, "keeper not running")
		return
	}
	id, err := s.keeper.Upkeep(r.Context())
	if err != nil {
		if errors.Is(err, lottery.ErrUpkeepNotNeeded) {
			jsonhttp.OK(w, performUpkeepResponse{})
			return
		}
		s.logger.Debugf("debug api: perform upkeep: %v", err)
		s.logger.Error("debug api: perform upkeep")
		jsonhttp.InternalServerError(w, "perform upkeep")
		return
	}
	if id == nil {
		jsonhttp.OK(w, performUpkeepResponse{})
		return
	}
	jsonhttp.OK(w, performUpkeepResponse{
		Performed: true,
		RequestID: bigint.Wrap(id),
	})
}
