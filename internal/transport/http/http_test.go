package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nadzzz/parley/internal/message"
	"github.com/nadzzz/parley/internal/metrics"
	"github.com/nadzzz/parley/internal/session"
	"github.com/nadzzz/parley/internal/transport"
)

// fakeService records requests and answers with canned results.
type fakeService struct {
	mu     sync.Mutex
	turns  []message.TurnRequest
	closed []string
}

func (f *fakeService) Open(_ context.Context, req *message.OpenRequest) (*message.SessionInfo, error) {
	if req.Language == "klingon" {
		return nil, fmt.Errorf("%w: unsupported language", transport.ErrInvalidRequest)
	}
	lang := req.Language
	if lang == "" {
		lang = "english"
	}
	return &message.SessionInfo{SessionID: "s-1", Language: lang, Turns: 1}, nil
}

func (f *fakeService) Turn(_ context.Context, req *message.TurnRequest) (*message.TurnResult, error) {
	f.mu.Lock()
	f.turns = append(f.turns, *req)
	f.mu.Unlock()
	if req.SessionID == "missing" {
		return nil, fmt.Errorf("%w: missing", session.ErrSessionNotFound)
	}
	id := req.SessionID
	if id == "" {
		id = "s-new"
	}
	return &message.TurnResult{SessionID: id, ResponseText: "reply to " + req.Text, Turns: 3}, nil
}

func (f *fakeService) Transcript(_ context.Context, req *message.TranscriptRequest) (*message.TranscriptResult, error) {
	if req.SessionID != "s-1" {
		return nil, session.ErrSessionNotFound
	}
	return &message.TranscriptResult{SessionID: "s-1", Turns: []message.Turn{{Role: message.RoleSystem, Text: "sys"}}}, nil
}

func (f *fakeService) CloseSession(_ context.Context, id string) error {
	if id != "s-1" && id != "s-new" {
		return session.ErrSessionNotFound
	}
	f.mu.Lock()
	f.closed = append(f.closed, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeService) closedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closed...)
}

func newServer(t *testing.T) (*httptest.Server, *fakeService, *metrics.Metrics) {
	t.Helper()
	svc := &fakeService{}
	m := metrics.New("")
	srv := httptest.NewServer(New(0, m).Routes(svc))
	t.Cleanup(srv.Close)
	return srv, svc, m
}

func TestOpenSession(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Post(srv.URL+"/sessions", "application/json", strings.NewReader(`{"language":"thai"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info message.SessionInfo
	_ = json.NewDecoder(resp.Body).Decode(&info)
	if info.SessionID != "s-1" || info.Language != "thai" {
		t.Errorf("info = %+v", info)
	}

	// An empty body opens in the default language.
	resp2, err := http.Post(srv.URL+"/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusCreated {
		t.Errorf("empty body status = %d", resp2.StatusCode)
	}

	resp3, err := http.Post(srv.URL+"/sessions", "application/json", strings.NewReader(`{"language":"klingon"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown language status = %d", resp3.StatusCode)
	}
}

func TestTurnJSON(t *testing.T) {
	srv, svc, m := newServer(t)

	body := `{"session_id":"s-1","text":"Hello","response_mode":"text"}`
	resp, err := http.Post(srv.URL+"/turn", "application/json; charset=utf-8", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res message.TurnResult
	_ = json.NewDecoder(resp.Body).Decode(&res)
	if res.ResponseText != "reply to Hello" {
		t.Errorf("result = %+v", res)
	}
	if got := svc.turns[0]; got.SessionID != "s-1" || got.ResponseMode != message.ResponseModeText {
		t.Errorf("request = %+v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/turn", "200")); got != 1 {
		t.Errorf("http metric = %v", got)
	}
}

func TestTurnRawAudio(t *testing.T) {
	srv, svc, _ := newServer(t)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/turn", bytes.NewReader([]byte("RIFF....")))
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set(HeaderSession, "s-1")
	req.Header.Set(HeaderResponseMode, "text+audio")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	got := svc.turns[0]
	if string(got.Audio) != "RIFF...." || got.ContentType != "audio/wav" || got.SessionID != "s-1" || got.ResponseMode != message.ResponseModeTextAudio {
		t.Errorf("request = %+v", got)
	}
}

func TestTurnRawAudioTooLarge(t *testing.T) {
	old := maxAudioBytes
	maxAudioBytes = 8
	t.Cleanup(func() { maxAudioBytes = old })

	srv, svc, _ := newServer(t)
	resp, err := http.Post(srv.URL+"/turn", "audio/wav", bytes.NewReader([]byte("RIFF0123456789")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
	if len(svc.turns) != 0 {
		t.Errorf("truncated audio reached the service: %+v", svc.turns)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _, _ := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad json", http.MethodPost, "/turn", `{`, http.StatusBadRequest},
		{"unknown session turn", http.MethodPost, "/turn", `{"session_id":"missing","text":"hi"}`, http.StatusNotFound},
		{"unknown transcript", http.MethodGet, "/sessions/nope/transcript", "", http.StatusNotFound},
		{"unknown close", http.MethodDelete, "/sessions/nope", "", http.StatusNotFound},
		{"close", http.MethodDelete, "/sessions/s-1", "", http.StatusNoContent},
		{"transcript", http.MethodGet, "/sessions/s-1/transcript", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				b, _ := io.ReadAll(resp.Body)
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, b)
			}
		})
	}
}

func TestWebSocketTurns(t *testing.T) {
	srv, svc, _ := newServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?response_mode=text"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(message.TurnRequest{Text: "first"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var res message.TurnResult
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if res.SessionID != "s-new" || res.ResponseText != "reply to first" {
		t.Errorf("first result = %+v", res)
	}

	// A binary frame is audio for the session established above.
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("RIFF")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	// Invalid JSON yields an error frame and the connection stays open.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	var errResp errorResponse
	if err := conn.ReadJSON(&errResp); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !strings.Contains(errResp.Error, "invalid json") {
		t.Errorf("error frame = %+v", errResp)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.turns) != 2 {
		t.Fatalf("turns = %d", len(svc.turns))
	}
	second := svc.turns[1]
	if second.SessionID != "s-new" || string(second.Audio) != "RIFF" || second.ResponseMode != message.ResponseModeText {
		t.Errorf("second request = %+v", second)
	}
}

func TestWebSocketClosesImplicitSession(t *testing.T) {
	srv, svc, _ := newServer(t)
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	// A connection that opened its own session closes it on disconnect.
	conn, _, err := websocket.DefaultDialer.Dial(base, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	if err := conn.WriteJSON(message.TurnRequest{Text: "hello"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var res message.TurnResult
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for len(svc.closedSessions()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := svc.closedSessions(); len(got) != 1 || got[0] != "s-new" {
		t.Fatalf("closed = %v, want [s-new]", got)
	}

	// A session named by the client outlives the connection.
	conn, _, err = websocket.DefaultDialer.Dial(base+"?session=s-1", nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	if err := conn.WriteJSON(message.TurnRequest{Text: "again"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	conn.Close()

	time.Sleep(50 * time.Millisecond)
	if got := svc.closedSessions(); len(got) != 1 {
		t.Errorf("closed = %v, client session must stay open", got)
	}
}

func TestSwaggerDoc(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/swagger/doc.json")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"/turn"`) {
		t.Errorf("status = %d, body = %.200s", resp.StatusCode, body)
	}
}
