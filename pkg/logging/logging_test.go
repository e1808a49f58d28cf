// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/vrflottery/raffle/pkg/logging"
)

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, logrus.InfoLevel)

	logger.Debugf("hidden %d", 1)
	logger.Infof("shown %d", 2)
	logger.WithField("player", "0xabc").Warning("entered")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged at info level: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("info message missing: %q", out)
	}
	if !strings.Contains(out, "player=0xabc") {
		t.Errorf("field missing: %q", out)
	}

	collectors := logger.Metrics()
	if len(collectors) != 5 {
		t.Fatalf("got %d collectors, want 5", len(collectors))
	}
	if got := testutil.ToFloat64(collectors[2]); got != 1 {
		t.Errorf("info count %v, want 1", got)
	}
	if got := testutil.ToFloat64(collectors[1]); got != 1 {
		t.Errorf("warn count %v, want 1", got)
	}
}

func TestParseVerbosity(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in     string
		level  logrus.Level
		silent bool
		err    bool
	}{
		{in: "0", silent: true, level: logrus.PanicLevel},
		{in: "silent", silent: true, level: logrus.PanicLevel},
		{in: "1", level: logrus.ErrorLevel},
		{in: "warn", level: logrus.WarnLevel},
		{in: "3", level: logrus.InfoLevel},
		{in: "DEBUG", level: logrus.DebugLevel},
		{in: "5", level: logrus.TraceLevel},
		{in: "loud", err: true},
	} {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			level, silent, err := logging.ParseVerbosity(tc.in)
			if tc.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if level != tc.level || silent != tc.silent {
				t.Fatalf("got %v %v, want %v %v", level, silent, tc.level, tc.silent)
			}
		})
	}
}
