// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vrflottery/raffle/pkg/jsonhttp"
)

type deploymentResponse struct {
	Address         common.Address `json:"address"`
	TransactionHash common.Hash    `json:"transactionHash"`
	Args            []string       `json:"args"`
	NumDeployments  int            `json:"numDeployments"`
}

type deploymentsResponse struct {
	Network     string                        `json:"network"`
	Deployments map[string]deploymentResponse `json:"deployments"`
}

func (s *Service) deploymentsHandler(w http.ResponseWriter, _ *http.Request) {
	if s.records == nil {
		jsonhttp.NotFound(w, "no deployment records")
		return
	}
	names, err := s.records.List(s.network)
	if err != nil {
		s.logger.Debugf("debug api: list deployments: %v", err)
		s.logger.Error("debug api: list deployments")
		jsonhttp.InternalServerError(w, "list deployments")
		return
	}

	resp := deploymentsResponse{
		Network:     s.network,
		Deployments: make(map[string]deploymentResponse, len(names)),
	}
	for _, name := range names {
		d, err := s.records.Load(s.network, name)
		if err != nil {
			s.logger.Debugf("debug api: load deployment %s: %v", name, err)
			s.logger.Errorf("debug api: load deployment %s", name)
			jsonhttp.InternalServerError(w, "load deployment")
			return
		}
		resp.Deployments[name] = deploymentResponse{
			Address:         d.Address,
			TransactionHash: d.TransactionHash,
			Args:            d.Args,
			NumDeployments:  d.NumDeployments,
		}
	}
	jsonhttp.OK(w, resp)
}
