// Package control exposes the downsampler target-rate parameter over a
// websocket so a remote UI or automation script can move it while audio is
// running.
//
// Clients send JSON text messages of the form
//
//	{"target_rate": 6000}
//	{"normalized": 0.25}
//
// and receive the resulting parameter state after every message. A state
// message is also pushed when a client connects.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	downsampler "github.com/tphakala/go-audio-downsampler"
)

// Parameter is the subset of downsampler.RateParam the server drives.
type Parameter interface {
	Get() int
	Set(hz int) int
	Normalized() float64
	SetNormalized(x float64) int
	String() string
}

// Request is a client message. Exactly one field must be set.
type Request struct {
	TargetRate *int     `json:"target_rate,omitempty"`
	Normalized *float64 `json:"normalized,omitempty"`
}

// State is the server reply.
type State struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Unit       string  `json:"unit"`
	Min        int     `json:"min"`
	Max        int     `json:"max"`
	TargetRate int     `json:"target_rate"`
	Normalized float64 `json:"normalized"`
	Display    string  `json:"display"`
	Error      string  `json:"error,omitempty"`
}

// Errors reported back to clients.
var (
	ErrEmptyRequest     = errors.New("request sets no field")
	ErrAmbiguousRequest = errors.New("request sets both target_rate and normalized")
	ErrBinaryMessage    = errors.New("binary messages are not supported")
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxMessageBytes   = 4096
)

// Server serves the websocket control endpoint.
type Server struct {
	param    Parameter
	log      *logrus.Logger
	upgrader websocket.Upgrader
	clients  atomic.Int64
	applied  atomic.Uint64
}

// NewServer creates a control server for param. A nil logger discards
// everything below Warn.
func NewServer(param Parameter, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	return &Server{
		param: param,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local tool; any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes: /ws for the websocket and /state for a
// plain JSON snapshot.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/state", s.serveState)
	return mux
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int64 {
	return s.clients.Load()
}

// Applied returns the number of requests that changed the parameter.
func (s *Server) Applied() uint64 {
	return s.applied.Load()
}

// ListenAndServe serves Handler on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(logrus.Fields{
			"function": "ListenAndServe",
			"addr":     addr,
		}).Info("Control server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("control server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("control server shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) serveState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.state(nil)); err != nil {
		s.log.WithError(err).Warn("Failed to write state")
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.log.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	s.clients.Add(1)
	defer s.clients.Add(-1)

	logger := s.log.WithFields(logrus.Fields{
		"function": "serveWS",
		"remote":   r.RemoteAddr,
	})
	logger.Info("Control client connected")

	if err := conn.WriteJSON(s.state(nil)); err != nil {
		logger.WithError(err).Warn("Failed to send initial state")
		return
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Warn("Control client read failed")
			} else {
				logger.Info("Control client disconnected")
			}
			return
		}

		var applyErr error
		if messageType != websocket.TextMessage {
			applyErr = ErrBinaryMessage
		} else {
			applyErr = s.apply(data)
		}
		if applyErr != nil {
			logger.WithError(applyErr).Debug("Rejected control message")
		}

		if err := conn.WriteJSON(s.state(applyErr)); err != nil {
			logger.WithError(err).Warn("Failed to send state")
			return
		}
	}
}

// apply decodes one request and writes it to the parameter.
func (s *Server) apply(data []byte) error {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	var hz int
	switch {
	case req.TargetRate != nil && req.Normalized != nil:
		return ErrAmbiguousRequest
	case req.TargetRate != nil:
		hz = s.param.Set(*req.TargetRate)
	case req.Normalized != nil:
		hz = s.param.SetNormalized(*req.Normalized)
	default:
		return ErrEmptyRequest
	}

	s.applied.Add(1)
	s.log.WithFields(logrus.Fields{
		"function":    "apply",
		"target_rate": hz,
	}).Debug("Target rate set remotely")
	return nil
}

func (s *Server) state(err error) State {
	st := State{
		ID:         downsampler.ParamID,
		Name:       downsampler.ParamName,
		Unit:       downsampler.ParamUnit,
		Min:        downsampler.MinTargetRate,
		Max:        downsampler.MaxTargetRate,
		TargetRate: s.param.Get(),
		Normalized: s.param.Normalized(),
		Display:    s.param.String(),
	}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}
