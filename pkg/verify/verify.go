// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package verify submits contract sources to an Etherscan compatible block
// explorer and waits for the verification result.
package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/vrflottery/raffle/pkg/logging"
)

const (
	statusOK = "1"

	resultPending         = "Pending in queue"
	resultVerified        = "Pass - Verified"
	resultAlreadyVerified = "already verified"

	DefaultPollInterval = 5 * time.Second
)

var (
	ErrVerificationFailed = errors.New("verification failed")
	ErrMissingAPIKey      = errors.New("explorer api key not set")
)

// Source is the compiled source submitted for verification.
type Source struct {
	ContractName    string // fully qualified for standard json input, e.g. contracts/Lottery.sol:Lottery
	SourceCode      string
	CodeFormat      string // solidity-single-file or solidity-standard-json-input
	CompilerVersion string // e.g. v0.8.7+commit.e28d00a7
	Optimization    bool
	Runs            int
}

type Options struct {
	APIURL       string
	APIKey       string
	Source       Source
	HTTPClient   *http.Client
	PollInterval time.Duration
	// RequestsPerSecond limits the calls to the explorer API.
	RequestsPerSecond float64
	Logger            logging.Logger
}

// Client verifies contracts on one explorer.
type Client struct {
	apiURL       string
	apiKey       string
	source       Source
	httpClient   *http.Client
	pollInterval time.Duration
	limiter      *rate.Limiter
	logger       logging.Logger
}

func New(o Options) (*Client, error) {
	if o.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if _, err := url.ParseRequestURI(o.APIURL); err != nil {
		return nil, fmt.Errorf("explorer api url: %w", err)
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.RequestsPerSecond == 0 {
		o.RequestsPerSecond = 5
	}
	if o.Logger == nil {
		o.Logger = logging.New(io.Discard, 0)
	}
	if o.Source.CodeFormat == "" {
		o.Source.CodeFormat = "solidity-standard-json-input"
	}
	return &Client{
		apiURL:       o.APIURL,
		apiKey:       o.APIKey,
		source:       o.Source,
		httpClient:   o.HTTPClient,
		pollInterval: o.PollInterval,
		limiter:      rate.NewLimiter(rate.Limit(o.RequestsPerSecond), 1),
		logger:       o.Logger,
	}, nil
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Verify submits the source for the contract at address and polls until the
// explorer reports a result. A contract that is already verified is not an
// error.
func (c *Client) Verify(ctx context.Context, address common.Address, constructorArgs []byte) error {
	optimization := "0"
	if c.source.Optimization {
		optimization = "1"
	}
	form := url.Values{
		"apikey":                {c.apiKey},
		"module":                {"contract"},
		"action":                {"verifysourcecode"},
		"contractaddress":       {address.Hex()},
		"sourceCode":            {c.source.SourceCode},
		"codeformat":            {c.source.CodeFormat},
		"contractname":          {c.source.ContractName},
		"compilerversion":       {c.source.CompilerVersion},
		"optimizationUsed":      {optimization},
		"runs":                  {fmt.Sprintf("%d", c.source.Runs)},
		"constructorArguements": {hex.EncodeToString(constructorArgs)},
	}

	r, err := c.do(ctx, http.MethodPost, form)
	if err != nil {
		return fmt.Errorf("submit verification: %w", err)
	}
	if r.Status != statusOK {
		if isAlreadyVerified(r.Result) {
			c.logger.Infof("contract %s is already verified", address)
			return nil
		}
		return fmt.Errorf("%w: %s: %s", ErrVerificationFailed, r.Message, r.Result)
	}
	guid := r.Result
	c.logger.Debugf("verification of %s submitted, guid %s", address, guid)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		r, err := c.do(ctx, http.MethodGet, url.Values{
			"apikey": {c.apiKey},
			"module": {"contract"},
			"action": {"checkverifystatus"},
			"guid":   {guid},
		})
		if err != nil {
			return fmt.Errorf("check verification status: %w", err)
		}
		switch {
		case r.Result == resultPending:
			continue
		case r.Result == resultVerified, isAlreadyVerified(r.Result):
			c.logger.Infof("contract %s verified", address)
			return nil
		default:
			return fmt.Errorf("%w: %s", ErrVerificationFailed, r.Result)
		}
	}
}

func (c *Client) do(ctx context.Context, method string, params url.Values) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, c.apiURL, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.apiURL+"?"+params.Encode(), nil)
	}
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer responded %s", resp.Status)
	}
	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}
	return &r, nil
}

func isAlreadyVerified(result string) bool {
	return strings.Contains(strings.ToLower(result), resultAlreadyVerified)
}
