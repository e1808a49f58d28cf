// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsonhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"resenje.org/web"
)

// MethodHandler routes a request to the handler of its method. HEAD is
// served by the GET handler unless one is registered for it. Any other
// method is answered with a JSON 405 naming it and an Allow header.
type MethodHandler map[string]http.Handler

func (h MethodHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		if _, ok := h[http.MethodHead]; !ok {
			if get, ok := h[http.MethodGet]; ok {
				get.ServeHTTP(w, r)
				return
			}
		}
	}
	web.HandleMethods(h, methodNotAllowedBody(r.Method), DefaultContentTypeHeader, w, r)
}

func methodNotAllowedBody(method string) string {
	b, err := json.Marshal(StatusResponse{
		Message: "method " + method + " not allowed",
		Code:    http.StatusMethodNotAllowed,
	})
	if err != nil {
		return `{"message":"Method Not Allowed","code":405}`
	}
	return string(b)
}

func NotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	NotFound(w, nil)
}

// NewMaxBodyBytesHandler is an http middleware constructor that limits the
// maximal number of bytes that can be read from the request body. When a body
// is read, the error can be handled with a helper function HandleBodyReadError
// in order to respond with Request Entity Too Large response.
// See TestNewMaxBodyBytesHandler as an example.
func NewMaxBodyBytesHandler(limit int64) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				RequestEntityTooLarge(w, nil)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			h.ServeHTTP(w, r)
		})
	}
}

// HandleBodyReadError responds with Request Entity Too Large when err comes
// from a body over the limit of NewMaxBodyBytesHandler. Otherwise nothing is
// written and it returns false.
func HandleBodyReadError(err error, w http.ResponseWriter) (responded bool) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RequestEntityTooLarge(w, nil)
		return true
	}
	return false
}
