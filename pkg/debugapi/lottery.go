// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vrflottery/raffle/pkg/bigint"
	"github.com/vrflottery/raffle/pkg/jsonhttp"
	"github.com/vrflottery/raffle/pkg/lottery"
)

type lotteryStatusResponse struct {
	Address              common.Address `json:"address"`
	State                lottery.State  `json:"state"`
	EntranceFee          *bigint.BigInt `json:"entranceFee"`
	Balance              *bigint.BigInt `json:"balance"`
	NumberOfPlayers      uint64         `json:"numberOfPlayers"`
	RecentWinner         common.Address `json:"recentWinner"`
	LatestTimestamp      uint64         `json:"latestTimestamp"`
	Interval             uint64         `json:"interval"`
	SubscriptionID       uint64         `json:"subscriptionId"`
	NumWords             uint32         `json:"numWords"`
	RequestConfirmations uint16         `json:"requestConfirmations"`
	UpkeepNeeded         bool           `json:"upkeepNeeded"`
}

type playersResponse struct {
	Players []common.Address `json:"players"`
}

func (s *Service) lotteryStatusHandler(w http.ResponseWriter, r *http.Request) {
	if s.lottery == nil {
		jsonhttp.ServiceUnavailable(w, "lottery not deployed")
		return
	}
	st, err := s.lottery.Status(r.Context())
	if err != nil {
		s.logger.Debugf("debug api: lottery status: %v", err)
		s.logger.Error("debug api: lottery status")
		jsonhttp.InternalServerError(w, "lottery status")
		return
	}

	resp := lotteryStatusResponse{
		Address:              st.Address,
		State:                st.State,
		NumberOfPlayers:      st.NumberOfPlayers,
		RecentWinner:         st.RecentWinner,
		LatestTimestamp:      st.LatestTimestamp,
		Interval:             st.Interval,
		SubscriptionID:       st.SubscriptionID,
		NumWords:             st.NumWords,
		RequestConfirmations: st.RequestConfirmations,
		UpkeepNeeded:         st.UpkeepNeeded,
	}
	if st.EntranceFee != nil {
		resp.EntranceFee = bigint.Wrap(st.EntranceFee)
	}
	if st.Balance != nil {
		resp.Balance = bigint.Wrap(st.Balance)
	}
	jsonhttp.OK(w, resp)
}

func (s *Service) playersHandler(w http.ResponseWriter, r *http.Request) {
	if s.lottery == nil {
		jsonhttp.ServiceUnavailable(w, "lottery not deployed")
		return
	}
	players, err := s.lottery.Players(r.Context())
	if err != nil {
		s.logger.Debugf("debug api: lottery players: %v", err)
		s.logger.Error("debug api: lottery players")
		jsonhttp.InternalServerError(w, "lottery players")
		return
	}
	if players == nil {
		players = []common.Address{}
	}
	jsonhttp.OK(w, playersResponse{Players: players})
}
