// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"resenje.org/web"

	"github.com/vrflottery/raffle/pkg/jsonhttp"
	"github.com/vrflottery/raffle/pkg/logging/httpaccess"
)

func (s *Service) newRouter() *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(jsonhttp.NotFoundHandler)

	router.Path("/metrics").Handler(web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandler(promhttp.InstrumentMetricHandler(
			s.metricsRegistry,
			promhttp.HandlerFor(s.metricsRegistry, promhttp.HandlerOpts{}),
		)),
	))

	router.Handle("/health", web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandlerFunc(s.healthHandler),
	))

	router.Handle("/lottery", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.lotteryStatusHandler),
	})
	router.Handle("/lottery/players", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.playersHandler),
	})
	router.Handle("/upkeep", jsonhttp.MethodHandler{
		"GET":  http.HandlerFunc(s.checkUpkeepHandler),
		"POST": http.HandlerFunc(s.performUpkeepHandler),
	})
	router.Handle("/deployments", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.deploymentsHandler),
	})
	router.Handle("/events", web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // streams outlive the access log
		web.FinalHandlerFunc(s.eventsHandler),
	))

	return router
}

// setRouter sets the base Debug API handler with common middlewares.
func (s *Service) setRouter(router http.Handler) {
	h := http.NewServeMux()
	h.Handle("/", web.ChainHandlers(
		httpaccess.NewHTTPAccessLogHandler(s.logger, logrus.InfoLevel, "debug api access"),
		handlers.RecoveryHandler(handlers.PrintRecoveryStack(false)),
		handlers.CompressHandler,
		func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if o := r.Header.Get("Origin"); o != "" && s.checkOrigin(o) {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Access-Control-Allow-Origin", o)
					w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, X-Requested-With")
					w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST")
					w.Header().Set("Access-Control-Max-Age", "3600")
				}
				h.ServeHTTP(w, r)
			})
		},
		web.NoCacheHeadersHandler,
		web.FinalHandler(router),
	))
	s.handler = h
}

// checkOrigin allows any origin when no origins are configured.
func (s *Service) checkOrigin(origin string) bool {
	if len(s.corsAllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.corsAllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
