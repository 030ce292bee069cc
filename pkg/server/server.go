// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the evaluation engine over HTTP. It serves
// health and scheme discovery endpoints plus the evaluate endpoint, with
// CORS, gzip compression, request ids, and structured access logging.
// Malformed requests get a 400 with a JSON error body; a scheme that
// fails during evaluation is reported inline in its entry, never as a
// 5xx for the whole request.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/teradata-labs/rubric/pkg/evaluation"
	"github.com/teradata-labs/rubric/pkg/schema"
)

const (
	// DefaultRequestTimeout bounds one evaluate request end to end.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultMaxBodyBytes caps request bodies. The evaluate text tops out
	// at 50k characters, so 1 MiB leaves ample headroom for UTF-8.
	DefaultMaxBodyBytes = 1 << 20
)

// Config configures a Server. Registry and Engine are required.
type Config struct {
	Registry *schema.Registry
	Engine   *evaluation.Engine
	Logger   *zap.Logger

	// Addr is the listen address, host:port.
	Addr string

	// CORS overrides the permissive default configuration when set.
	CORS *CORSConfig

	// RequestTimeout bounds one evaluate call end to end. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// MaxBodyBytes caps request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Server is the HTTP front end of the evaluation engine.
type Server struct {
	registry       *schema.Registry
	engine         *evaluation.Engine
	logger         *zap.Logger
	httpServer     *http.Server
	corsConfig     CORSConfig
	requestTimeout time.Duration
	maxBodyBytes   int64
}

// New builds a server from cfg.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	corsConfig := DefaultCORSConfig()
	if cfg.CORS != nil {
		corsConfig = *cfg.CORS
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	return &Server{
		registry:       cfg.Registry,
		engine:         cfg.Engine,
		logger:         logger,
		corsConfig:     corsConfig,
		requestTimeout: requestTimeout,
		maxBodyBytes:   maxBodyBytes,
		httpServer: &http.Server{
			Addr:        cfg.Addr,
			ReadTimeout: 30 * time.Second,
			// WriteTimeout must outlast the evaluate deadline or slow
			// judge calls get their response cut off mid-write.
			WriteTimeout: requestTimeout + 10*time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Handler builds the complete route and middleware stack. Split out of
// Start so tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/schemes", s.handleSchemes)
	mux.HandleFunc("/schemes/", s.handleSchemes)
	mux.HandleFunc("/evaluate", s.handleEvaluate)
	mux.HandleFunc("/evaluate/", s.handleEvaluate)

	var handler http.Handler = gzhttp.GzipHandler(mux)
	if s.corsConfig.Enabled {
		handler = s.corsMiddleware(handler)
	}
	handler = s.accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

// Start runs the server until Stop is called. It blocks.
func (s *Server) Start() error {
	s.httpServer.Handler = s.Handler()

	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.httpServer.Addr),
		zap.Int("schemes_loaded", s.registry.Len()))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the server, letting in-flight requests drain
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error": …} body every failure response uses.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
