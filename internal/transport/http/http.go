// Package http implements the HTTP/WebSocket transport for parley.
//
// This transport exposes a REST API for sessions and turns and a WebSocket
// endpoint for chat-style clients that keep one connection per conversation.
// It is best suited for web clients, phones, and services that prefer
// HTTP-based communication.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/parley/docs" // registers the OpenAPI spec
	"github.com/nadzzz/parley/internal/message"
	"github.com/nadzzz/parley/internal/metrics"
	"github.com/nadzzz/parley/internal/session"
	"github.com/nadzzz/parley/internal/transport"
)

// Header names used with raw audio uploads.
const (
	HeaderSession      = "X-Parley-Session"
	HeaderResponseMode = "X-Parley-Response-Mode"
	HeaderLanguage     = "X-Parley-Language"
)

// maxAudioBytes caps raw audio uploads and WebSocket frames.
var maxAudioBytes int64 = 25 << 20

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	port    int
	metrics *metrics.Metrics
	server  *http.Server
}

// New creates a new HTTP transport on the given port. m may be nil.
func New(port int, m *metrics.Metrics) *Transport {
	return &Transport{port: port, metrics: m}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Routes builds the HTTP handler serving svc.
func (t *Transport) Routes(svc transport.Service) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /sessions", t.instrument("/sessions", func(w http.ResponseWriter, r *http.Request) {
		handleOpen(w, r, svc)
	}))
	mux.Handle("POST /turn", t.instrument("/turn", func(w http.ResponseWriter, r *http.Request) {
		handleTurn(w, r, svc)
	}))
	mux.Handle("GET /sessions/{id}/transcript", t.instrument("/sessions/{id}/transcript", func(w http.ResponseWriter, r *http.Request) {
		handleTranscript(w, r, svc)
	}))
	mux.Handle("DELETE /sessions/{id}", t.instrument("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleClose(w, r, svc)
	}))

	// GET /ws: one conversation per connection.
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		t.handleWebSocket(w, r, svc)
	})

	// Swagger UI over the OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and serves requests with svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Routes(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// handleOpen processes a POST /sessions request.
//
// @Summary     Open a conversation session
// @Description Creates a session whose transcript starts with the system instruction.
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       request  body      message.OpenRequest  false  "Initial language (defaults to the configured default language)"
// @Success     201      {object}  message.SessionInfo
// @Failure     400      {object}  errorResponse  "Invalid body or unknown language"
// @Router      /sessions [post]
func handleOpen(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	var req message.OpenRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
			return
		}
	}
	info, err := svc.Open(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// handleTurn processes a POST /turn request.
//
// @Summary     Submit a conversation turn
// @Description Accepts a JSON TurnRequest (typed text or base64 audio) or raw audio bytes.
// @Description "change language to X" is handled as a command; anything else is sent to the model.
// @Description A request without a session id opens a new session.
// @Tags        turns
// @Accept      json
// @Accept      audio/wav
// @Accept      audio/ogg
// @Produce     json
// @Param       request  body      message.TurnRequest  true   "Turn request (JSON). For raw audio, POST the bytes directly with the appropriate Content-Type."
// @Param       X-Parley-Session        header  string  false  "Session id (raw audio uploads)"
// @Param       X-Parley-Response-Mode  header  string  false  "none, text, audio or text+audio (raw audio uploads)"
// @Param       X-Parley-Language       header  string  false  "Initial language when opening a session (raw audio uploads)"
// @Success     200  {object}  message.TurnResult  "Turn outcome; pipeline failures are reported in stage/error"
// @Failure     400  {object}  errorResponse  "Invalid request body or headers"
// @Failure     404  {object}  errorResponse  "Unknown session"
// @Failure     413  {object}  errorResponse  "Body too large"
// @Router      /turn [post]
func handleTurn(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	var req message.TurnRequest

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		// Audio inside JSON is base64, a third larger than the raw bytes.
		body := http.MaxBytesReader(w, r.Body, maxAudioBytes/3*4+(64<<10))
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeBodyError(w, "invalid json", err)
			return
		}
	default:
		// Treat body as raw audio; read the rest of the request from headers.
		audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioBytes))
		if err != nil {
			writeBodyError(w, "reading audio", err)
			return
		}
		req.Audio = audio
		req.ContentType = contentType
		req.SessionID = r.Header.Get(HeaderSession)
		req.Language = r.Header.Get(HeaderLanguage)
		req.ResponseMode = message.ResponseMode(r.Header.Get(HeaderResponseMode))
	}

	result, err := svc.Turn(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleTranscript processes a GET /sessions/{id}/transcript request.
//
// @Summary     Get a session transcript
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session id"
// @Success     200  {object}  message.TranscriptResult
// @Failure     404  {object}  errorResponse  "Unknown session"
// @Router      /sessions/{id}/transcript [get]
func handleTranscript(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	result, err := svc.Transcript(r.Context(), &message.TranscriptRequest{SessionID: r.PathValue("id")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleClose processes a DELETE /sessions/{id} request.
//
// @Summary     Close a session
// @Tags        sessions
// @Param       id   path  string  true  "Session id"
// @Success     204
// @Failure     404  {object}  errorResponse  "Unknown session"
// @Router      /sessions/{id} [delete]
func handleClose(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	if err := svc.CloseSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleWebSocket upgrades the connection and serves turns until the client
// goes away. Text frames carry a JSON TurnRequest; binary frames carry raw
// audio for the connection's session. The session id of the first result is
// reused for later frames that don't name one, and a session opened that way
// is closed when the connection ends.
func (t *Transport) handleWebSocket(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	t.metrics.RecordHTTP("/ws", http.StatusSwitchingProtocols)

	conn.SetReadLimit(maxAudioBytes)
	sessionID := r.URL.Query().Get("session")
	mode := message.ResponseMode(r.URL.Query().Get("response_mode"))
	logger := slog.With("remote", r.RemoteAddr)
	logger.Debug("websocket connected")

	// A session this connection opened implicitly ends with it.
	var opened string
	defer func() {
		if opened == "" {
			return
		}
		if err := svc.CloseSession(context.WithoutCancel(r.Context()), opened); err != nil {
			logger.Debug("closing websocket session", "session_id", opened, "error", err)
		}
	}()

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read ended", "error", err)
			}
			return
		}

		var req message.TurnRequest
		switch messageType {
		case websocket.TextMessage:
			if err := json.Unmarshal(frame, &req); err != nil {
				_ = conn.WriteJSON(errorResponse{Error: "invalid json: " + err.Error()})
				continue
			}
		case websocket.BinaryMessage:
			req.Audio = frame
			req.ContentType = "audio/wav"
		default:
			continue
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}
		if req.ResponseMode == "" {
			req.ResponseMode = mode
		}

		result, err := svc.Turn(r.Context(), &req)
		if err != nil {
			_ = conn.WriteJSON(errorResponse{Error: err.Error()})
			continue
		}
		if sessionID == "" {
			sessionID = result.SessionID
			if req.SessionID == "" {
				opened = result.SessionID
			}
		}
		if err := conn.WriteJSON(result); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		code = http.StatusNotFound
	case errors.Is(err, transport.ErrInvalidRequest):
		code = http.StatusBadRequest
	default:
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// writeBodyError answers 413 when the body exceeded its limit and 400
// otherwise.
func writeBodyError(w http.ResponseWriter, what string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: what + ": " + err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// instrument counts requests per route and status code.
func (t *Transport) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		t.metrics.RecordHTTP(route, rec.code)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}
