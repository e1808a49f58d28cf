// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"

	"github.com/vrflottery/raffle/pkg/jsonhttp"
	"github.com/vrflottery/raffle/pkg/lottery"
	"github.com/vrflottery/raffle/pkg/vrf"
)

const (
	writeDeadline = 4 * time.Second // write deadline. should be smaller than the shutdown timeout on api close
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// eventMessage is a decoded contract log sent over the events stream.
type eventMessage struct {
	Name            string                 `json:"name"`
	Address         common.Address         `json:"address"`
	BlockNumber     uint64                 `json:"blockNumber"`
	TransactionHash common.Hash            `json:"transactionHash"`
	Fields          map[string]interface{} `json:"fields"`
}

func (s *Service) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if s.events == nil || s.lottery == nil {
		jsonhttp.ServiceUnavailable(w, "event stream not available")
		return
	}

	addresses := []common.Address{s.lottery.Address()}
	if s.coordinator != (common.Address{}) {
		addresses = append(addresses, s.coordinator)
	}

	// register the stream before Close can wait for the open ones
	s.wsMu.Lock()
	if s.quit.Signaled() {
		s.wsMu.Unlock()
		jsonhttp.ServiceUnavailable(w, "shutting down")
		return
	}
	s.wsWg.Add(1)
	s.wsMu.Unlock()

	// subscribe before the upgrade so that no log after the handshake is missed
	ctx, cancel := context.WithCancel(context.Background())
	logsC := make(chan types.Log, 16)
	sub, err := s.events.SubscribeFilterLogs(ctx, ethereum.FilterQuery{Addresses: addresses}, logsC)
	if err != nil {
		cancel()
		s.wsWg.Done()
		s.logger.Debugf("events ws: subscribe: %v", err)
		s.logger.Error("events ws: cannot subscribe")
		jsonhttp.InternalServerError(w, "subscribe to events")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Unsubscribe()
		cancel()
		s.wsWg.Done()
		s.logger.Debugf("events ws: upgrade: %v", err)
		s.logger.Error("events ws: cannot upgrade")
		return
	}

	go s.pumpWs(conn, sub, logsC, cancel)
}

func (s *Service) pumpWs(conn *websocket.Conn, sub ethereum.Subscription, logsC <-chan types.Log, cancel context.CancelFunc) {
	defer s.wsWg.Done()

	var (
		gone   = make(chan struct{})
		ticker = time.NewTicker(pingPeriod)
		err    error
	)
	defer func() {
		ticker.Stop()
		sub.Unsubscribe()
		cancel()
		conn.Close()
	}()

	conn.SetCloseHandler(func(code int, text string) error {
		s.logger.Debugf("events ws: client gone. code %d message %s", code, text)
		return nil
	})
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	// control frames are only processed while reading
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case l := <-logsC:
			msg, ok := decodeEvent(l)
			if !ok {
				continue
			}
			err = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err != nil {
				s.logger.Debugf("events ws: set write deadline: %v", err)
				return
			}
			err = conn.WriteJSON(msg)
			if err != nil {
				s.logger.Debugf("events ws: write to websocket: %v", err)
				return
			}

		case err = <-sub.Err():
			if err != nil {
				s.logger.Debugf("events ws: subscription: %v", err)
			}
			return

		case <-s.quit.C:
			// shutdown
			err = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err != nil {
				s.logger.Debugf("events ws: set write deadline: %v", err)
				return
			}
			err = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			if err != nil {
				s.logger.Debugf("events ws: write close message: %v", err)
			}
			return

		case <-gone:
			// client gone
			return

		case <-ticker.C:
			err = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err != nil {
				s.logger.Debugf("events ws: set write deadline: %v", err)
				return
			}
			if err = conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// decodeEvent names the log and unpacks its fields. Logs of unknown events
// are skipped.
func decodeEvent(l types.Log) (eventMessage, bool) {
	if len(l.Topics) == 0 {
		return eventMessage{}, false
	}
	msg := eventMessage{
		Address:         l.Address,
		BlockNumber:     l.BlockNumber,
		TransactionHash: l.TxHash,
	}

	switch l.Topics[0] {
	case lottery.LotteryEnterTopic:
		ev, err := lottery.ParseLotteryEnter(l)
		if err != nil {
			return eventMessage{}, false
		}
		msg.Name = "LotteryEnter"
		msg.Fields = map[string]interface{}{"player": ev.Player}
	case lottery.RequestedLotteryWinnerTopic:
		ev, err := lottery.ParseRequestedLotteryWinner(l)
		if err != nil {
			return eventMessage{}, false
		}
		msg.Name = "RequestedLotteryWinner"
		msg.Fields = map[string]interface{}{"requestId": ev.RequestId.String()}
	case lottery.WinnerPickedTopic:
		ev, err := lottery.ParseWinnerPicked(l)
		if err != nil {
			return eventMessage{}, false
		}
		msg.Name = "WinnerPicked"
		msg.Fields = map[string]interface{}{"winner": ev.Winner}
	case vrf.RandomWordsRequestedTopic:
		ev, err := vrf.ParseRandomWordsRequested(l)
		if err != nil {
			return eventMessage{}, false
		}
		msg.Name = "RandomWordsRequested"
		msg.Fields = map[string]interface{}{
			"requestId": ev.RequestId.String(),
			"subId":     ev.SubId,
			"numWords":  ev.NumWords,
			"sender":    ev.Sender,
		}
	case vrf.RandomWordsFulfilledTopic:
		ev, err := vrf.ParseRandomWordsFulfilled(l)
		if err != nil {
			return eventMessage{}, false
		}
		msg.Name = "RandomWordsFulfilled"
		msg.Fields = map[string]interface{}{
			"requestId": ev.RequestId.String(),
			"payment":   ev.Payment.String(),
			"success":   ev.Success,
		}
	default:
		return eventMessage{}, false
	}
	return msg, true
}
