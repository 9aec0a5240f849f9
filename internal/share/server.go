// Package share serves a session to browsers on the local network: a
// websocket carrying pointer input in and state plus rendered frames out,
// and plain HTTP endpoints for documents, stills and exports.
package share

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"Drawerz/internal/anim"
	"Drawerz/internal/doc"
	"Drawerz/internal/export"
	"Drawerz/internal/session"
)

const (
	DefaultAddr    = ":8888"
	DefaultFrameHz = 15
	// DefaultMaxDocument bounds uploaded documents.
	DefaultMaxDocument = 32 << 20

	shutdownTimeout = 5 * time.Second
)

// Config sets up a Server.
type Config struct {
	Addr string
	// FrameHz caps how often rendered frames are pushed to clients.
	FrameHz int
	// Export holds the defaults for POST /export.
	Export      export.Options
	MaxDocument int64
	Queue       int
	Now         func() time.Time
	Logger      *slog.Logger
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.FrameHz <= 0 {
		c.FrameHz = DefaultFrameHz
	}
	if c.Export.FPS <= 0 {
		c.Export.FPS = 30
	}
	if c.Export.Duration <= 0 {
		c.Export.Duration = 15 * time.Second
	}
	if c.Export.Quality == "" {
		c.Export.Quality = export.QualityMedium
	}
	if c.Export.Format == "" {
		c.Export.Format = export.FormatGIF
	}
	if c.MaxDocument <= 0 {
		c.MaxDocument = DefaultMaxDocument
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server exposes one session over HTTP and websockets.
type Server struct {
	cfg      Config
	log      *slog.Logger
	sess     *session.Session
	hub      *Hub
	router   chi.Router
	upgrader websocket.Upgrader

	lastFrame atomic.Int64
}

// New wires a server to sess. Changes and animation frames of the session
// are pushed to every connected client.
func New(sess *session.Session, cfg Config) *Server {
	cfg.defaults()
	log := cfg.Logger.With("component", "share")
	s := &Server{
		cfg:  cfg,
		log:  log,
		sess: sess,
		hub:  NewHub(cfg.Queue, log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Anyone who can reach the port may draw.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(s.requestLog)
	r.Get("/ws", s.handleWS)
	r.Get("/status", s.handleStatus)
	r.Get("/document", s.handleGetDocument)
	r.Put("/document", s.handlePutDocument)
	r.Get("/frame.png", s.handleFrame)
	r.Post("/export", s.handleExport)
	r.Delete("/export", s.handleCancelExport)
	s.router = r

	sess.OnChange(s.changed)
	sess.OnFrame(s.frame)
	return s
}

// Handler is the server's router.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the client registry.
func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe serves until ctx is done, then cancels any running export,
// disconnects clients and shuts down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("share server listening", "addr", s.cfg.Addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("share server: %w", err)
	case <-ctx.Done():
	}

	s.sess.CancelExport()
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("share server shutdown: %w", err)
	}
	s.log.Info("share server stopped")
	return nil
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) changed(uint64) {
	st := s.sess.Status()
	s.hub.BroadcastJSON(Message{Type: MsgState, Status: &st})
}

func (s *Server) frame(img image.Image) {
	if s.hub.Len() == 0 {
		return
	}
	now := time.Now().UnixNano()
	last := s.lastFrame.Load()
	if now-last < int64(time.Second)/int64(s.cfg.FrameHz) || !s.lastFrame.CompareAndSwap(last, now) {
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		s.log.Warn("encode frame", "err", err)
		return
	}
	s.hub.Broadcast(websocket.BinaryMessage, buf.Bytes())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", "err", err)
		return
	}
	c := s.hub.Add(conn)
	st := s.sess.Status()
	c.Send(Message{Type: MsgState, Status: &st})
	go c.WritePump()
	go c.ReadPump(s.handleMessage)
}

func (s *Server) handleMessage(c *Client, m Message) {
	if err := apply(s.sess, m); err != nil {
		s.log.Debug("message rejected", "client", c.ID, "type", m.Type, "err", err)
		c.Send(Message{Type: MsgError, Error: err.Error()})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Status())
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.sess.Save(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	name := doc.Filename(doc.IllustrationPrefix, doc.Extension, s.cfg.Now())
	w.Header().Set("Content-Type", doc.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(buf.Bytes())
}

func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxDocument)
	if err := s.sess.Load(body); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, err)
		case errors.Is(err, doc.ErrInvalidFormat):
			writeError(w, http.StatusBadRequest, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Status())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	t := s.sess.Now()
	if v := r.URL.Query().Get("t"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid time %q", v))
			return
		}
		t = f
	}
	img, err := s.sess.Frame(t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	opts, err := s.exportOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	progress := func(done, total int) {
		s.hub.BroadcastJSON(Message{Type: MsgProgress, Done: done, Total: total})
	}
	path, err := s.sess.Export(r.Context(), opts, progress)
	if err != nil {
		writeError(w, exportStatus(err), err)
		return
	}
	s.hub.BroadcastJSON(Message{Type: MsgExported, Path: path})
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) exportOptions(r *http.Request) (export.Options, error) {
	q := r.URL.Query()
	opts := s.cfg.Export
	var err error
	if v := q.Get("format"); v != "" {
		if opts.Format, err = export.ParseFormat(v); err != nil {
			return opts, err
		}
	}
	if v := q.Get("quality"); v != "" {
		if opts.Quality, err = export.ParseQuality(v); err != nil {
			return opts, err
		}
	}
	if v := q.Get("fps"); v != "" {
		if opts.FPS, err = strconv.Atoi(v); err != nil {
			return opts, fmt.Errorf("%w: fps %q", export.ErrInvalidOptions, v)
		}
	}
	if v := q.Get("duration"); v != "" {
		if opts.Duration, err = time.ParseDuration(v); err != nil {
			return opts, fmt.Errorf("%w: duration %q", export.ErrInvalidOptions, v)
		}
	}
	return opts, nil
}

func exportStatus(err error) int {
	switch {
	case errors.Is(err, export.ErrBusy), errors.Is(err, anim.ErrExportInProgress):
		return http.StatusConflict
	case errors.Is(err, session.ErrNothingToExport):
		return http.StatusUnprocessableEntity
	case errors.Is(err, export.ErrInvalidOptions), errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrEncoderUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) handleCancelExport(w http.ResponseWriter, r *http.Request) {
	if !s.sess.CancelExport() {
		writeError(w, http.StatusNotFound, errors.New("no export running"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
