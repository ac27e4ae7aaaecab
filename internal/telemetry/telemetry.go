/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry is a small opt-in event sender for anonymous usage
// counters and optional crash uploads. It is disabled unless the user
// sets the opt-in environment variable AND an endpoint. Events carry
// counts and durations, never file names or folder paths.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "croppy/internal/log"
	"croppy/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
//
// Environment variables (read by FromEnv):
//   - CROPPY_TELEMETRY_OPT_IN: "1", "true", "yes" or "on" to enable
//   - CROPPY_TELEMETRY_URL: URL to POST JSON events to
//   - CROPPY_CRASH_UPLOAD_URL: URL to POST crash reports to
//   - CROPPY_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
//   - CROPPY_TELEMETRY_DEBUG: if set, logs send attempts
//
// Without an endpoint every call is a no-op, even when opted in. There is
// deliberately no config-file switch; telemetry is enabled per
// environment or not at all.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// FromEnv reads the CROPPY_TELEMETRY_* variables.
func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("CROPPY_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("CROPPY_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("CROPPY_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("CROPPY_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("CROPPY_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Client sends events asynchronously over a bounded queue and drops them
// silently when the queue is full or a request fails. It never blocks
// the caller.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	queue  chan map[string]any
	once   sync.Once
	closed chan struct{}
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// InitDefault builds the package-level client from the environment on
// first use.
func InitDefault() {
	defaultOnce.Do(func() { NewDefault(FromEnv()) })
}

// NewDefault installs cfg as the package-level client.
func NewDefault(cfg Config) { defaultClient = New(cfg) }

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		queue:  make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events will actually be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether the default client will send events.
func Enabled() bool {
	InitDefault()
	return defaultClient.Enabled()
}

// Event queues a small JSON event if enabled. Props must not contain
// paths or other personal data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := make(map[string]any, len(props)+5)
	for k, v := range props {
		payload[k] = v
	}
	// The envelope fields win over caller props.
	payload["name"] = name
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	payload["version"] = version.String()
	payload["os"] = runtime.GOOS
	payload["arch"] = runtime.GOARCH
	select {
	case c.queue <- payload:
	default:
		// queue full, drop
	}
}

// Event queues an event on the default client.
func Event(name string, props map[string]any) { InitDefault(); defaultClient.Event(name, props) }

// Flush waits up to half a second for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for len(c.queue) > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the sender goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.queue:
			c.send(item)
		}
	}
}

func (c *Client) send(item map[string]any) {
	buf, err := json.Marshal(item)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, c.cfg.EventsURL, bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("event send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("event sent", slog.String("name", item["name"].(string)))
	}
}

// UploadCrash posts an already-serialized crash report to the crash URL
// if opted in. The upload runs on its own goroutine so a crashing app
// does not wait on it.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go func(b []byte) {
		req, err := http.NewRequest(http.MethodPost, c.cfg.CrashURL, bytes.NewReader(b))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp, err := c.cli.Do(req)
		if err != nil {
			if c.cfg.DebugLogging {
				c.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		_ = resp.Body.Close()
		if c.cfg.DebugLogging {
			c.log.Debug("crash report uploaded")
		}
	}(append([]byte(nil), report...))
}

// UploadCrash posts a crash report through the default client.
func UploadCrash(report []byte) { InitDefault(); defaultClient.UploadCrash(report) }
