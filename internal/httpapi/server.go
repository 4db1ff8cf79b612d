// Package httpapi serves a small read-only view of the lights state.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"gardenlights/internal/dispatch"
	"gardenlights/internal/notifier"
	logx "gardenlights/pkg/logx"
)

// DefaultAddr keeps the endpoint on loopback unless configured otherwise.
const DefaultAddr = "127.0.0.1:8086"

// Source is implemented by *dispatch.Dispatcher.
type Source interface {
	Snapshot() dispatch.Snapshot
}

type Server struct {
	addr     string
	src      Source
	channels []int
	device   string
	log      logx.Logger
	started  time.Time
}

func New(addr string, src Source, channels []int, device string, log logx.Logger) *Server {
	if strings.TrimSpace(addr) == "" {
		addr = DefaultAddr
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{
		addr:     addr,
		src:      src,
		channels: append([]int(nil), channels...),
		device:   device,
		log:      log,
		started:  time.Now(),
	}
}

type channelView struct {
	Index   int  `json:"index"`
	Channel int  `json:"channel"`
	On      bool `json:"on"`
}

type statusView struct {
	Device    string        `json:"device,omitempty"`
	Channels  []channelView `json:"channels"`
	Text      string        `json:"text"`
	ChangedAt *time.Time    `json:"changed_at,omitempty"`
	AppliedAt *time.Time    `json:"applied_at,omitempty"`
	Uptime    string        `json:"uptime"`
}

// Handler returns the routed handler with access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.getHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	return handlers.LoggingHandler(accessLog{s.log}, r)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.src.Snapshot()
	v := statusView{
		Device:   s.device,
		Channels: make([]channelView, 0, len(s.channels)),
		Uptime:   time.Since(s.started).Truncate(time.Second).String(),
	}
	status := make([]notifier.ChannelStatus, 0, len(s.channels))
	for i, ch := range s.channels {
		on := snap.Applied[ch]
		v.Channels = append(v.Channels, channelView{Index: i + 1, Channel: ch, On: on})
		status = append(status, notifier.ChannelStatus{Index: i + 1, Channel: ch, On: on})
	}
	v.Text = notifier.FormatStatus(status)
	if !snap.ChangedAt.IsZero() {
		v.ChangedAt = &snap.ChangedAt
	}
	if !snap.AppliedAt.IsZero() {
		v.AppliedAt = &snap.AppliedAt
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("status encode failed", logx.Err(err))
	}
}

// Serve listens until ctx is done. Meant to run under a supervisor restart
// loop: it returns context.Canceled on shutdown and the listen or serve
// error otherwise.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return err
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	defer func() { _ = srv.Close() }()

	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	s.log.Info("status endpoint started", logx.String("addr", ln.Addr().String()))
	err = srv.Serve(ln)
	if ctx.Err() != nil {
		return context.Canceled
	}
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return errors.New("status endpoint exited unexpectedly")
	}
	return err
}

// accessLog turns Apache-style access lines into debug records.
type accessLog struct{ log logx.Logger }

func (a accessLog) Write(p []byte) (int, error) {
	a.log.Debug("http access", logx.String("line", strings.TrimSpace(string(p))))
	return len(p), nil
}
