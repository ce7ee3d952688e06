package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/interview-coach/clients"
	cfg "github.com/maastricht-university/interview-coach/config"
	"github.com/maastricht-university/interview-coach/geometry"
	"github.com/maastricht-university/interview-coach/orchestrator"
)

func uprightTriples() [][]float64 {
	out := make([][]float64, geometry.MeshSize)
	for i := range out {
		out[i] = []float64{0.5, 0.5, 0}
	}
	out[geometry.Chin] = []float64{0.5, 0.7, 0}
	return out
}

func testConfig() *cfg.Root {
	c := &cfg.Root{}
	c.Pipeline.Name = "interview-coach"
	c.Pipeline.Version = "test"
	c.Session.CountdownSeconds = 0
	c.Session.TimeLimitSeconds = 60
	c.Session.Confidence = 0.8
	c.Session.Questions = []string{"Please introduce yourself."}
	c.Audio.EmitEvery = 1
	c.Server.StreamBuffer = 16
	return c
}

func newTestServer(t *testing.T, judgeURL string, hc *http.Client) *Server {
	t.Helper()
	c := testConfig()
	c.Judge.URL = judgeURL
	logger, _ := test.NewNullLogger()
	p := orchestrator.NewPipeline(c, logger)
	if hc != nil {
		p.WithHTTP(clients.NewHTTPWithClient(hc))
	}
	return New(c, p, logger)
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r).Decode(v))
}

func TestHealth(t *testing.T) {
	judge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer judge.Close()

	cases := []struct {
		name string
		url  string
		want bool
	}{
		{"judge up", judge.URL, true},
		{"no judge", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, tc.url, judge.Client())
			resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), 5000)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body struct {
				Status         string `json:"status"`
				Version        string `json:"version"`
				JudgeAvailable bool   `json:"judgeAvailable"`
			}
			decode(t, resp.Body, &body)
			assert.Equal(t, "ok", body.Status)
			assert.Equal(t, "test", body.Version)
			assert.Equal(t, tc.want, body.JudgeAvailable)
		})
	}
}

func TestQuestions(t *testing.T) {
	s := newTestServer(t, "", nil)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/questions", nil))
	require.NoError(t, err)

	var body struct {
		Questions []string `json:"questions"`
	}
	decode(t, resp.Body, &body)
	assert.Equal(t, []string{"Please introduce yourself."}, body.Questions)
}

func TestScore(t *testing.T) {
	s := newTestServer(t, "", nil)

	b, _ := json.Marshal(ScoreRequest{Landmarks: uprightTriples()})
	req := httptest.NewRequest(http.MethodPost, "/api/score", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var live orchestrator.Live
	decode(t, resp.Body, &live)
	assert.InDelta(t, 86, live.Scores.EyeContact, 1e-9)
	assert.InDelta(t, 80, live.Scores.Stability, 1e-9)
	assert.InDelta(t, live.FaceScore*0.1, live.LiveScore, 1e-9)
	assert.NotEmpty(t, live.Feedback)

	req = httptest.NewRequest(http.MethodPost, "/api/score", bytes.NewReader([]byte(`{"landmarks":[]}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.NoError(t, err)
	var m map[string]int64
	decode(t, resp.Body, &m)
	assert.Equal(t, int64(1), m["scored"])
	assert.Equal(t, int64(1), m["errors"])
}

func TestSessionRequiresUpgrade(t *testing.T) {
	s := newTestServer(t, "", nil)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/ws/session", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

type wsEvent struct {
	Type     string               `json:"type"`
	State    string               `json:"state"`
	Question string               `json:"question"`
	Error    string               `json:"error"`
	Live     *orchestrator.Live   `json:"live"`
	Result   *orchestrator.Result `json:"result"`
}

func dialSession(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(func() { _ = s.Shutdown() })

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/session", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readUntil(t *testing.T, ws *websocket.Conn, match func(wsEvent) bool) wsEvent {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var ev wsEvent
		require.NoError(t, ws.ReadJSON(&ev))
		if match(ev) {
			return ev
		}
	}
}

func ofType(typ string) func(wsEvent) bool {
	return func(ev wsEvent) bool { return ev.Type == typ }
}

func TestSessionStream(t *testing.T) {
	s := newTestServer(t, "", nil)
	ws := dialSession(t, s)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MsgStart}))
	active := readUntil(t, ws, func(ev wsEvent) bool { return ev.Type == "state" && ev.State == "active" })
	assert.Equal(t, "Please introduce yourself.", active.Question)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MsgFrame, Landmarks: uprightTriples()}))
	live := readUntil(t, ws, ofType("live"))
	require.NotNil(t, live.Live)
	assert.InDelta(t, 80, live.Live.Scores.Stability, 1e-9)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MsgAudio, Bins: make([]int, 32)}))
	readUntil(t, ws, ofType("audio"))

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MsgTranscript, Text: "I study computer science."}))
	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MsgSubmit}))

	res := readUntil(t, ws, ofType("result"))
	require.NotNil(t, res.Result)
	assert.Equal(t, "I study computer science.", res.Result.Answer)
	assert.True(t, res.Result.UsedFallback)
	assert.Equal(t, orchestrator.TriggerSubmit, res.Result.Trigger)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MsgSubmit}))
	errEv := readUntil(t, ws, ofType(MsgError))
	assert.Contains(t, errEv.Error, "already submitted")

	snap := s.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap["results"])
	assert.Equal(t, int64(1), snap["fallbacks"])
	assert.Equal(t, int64(1), snap["frames"])
}

func TestSessionStreamErrors(t *testing.T) {
	s := newTestServer(t, "", nil)
	ws := dialSession(t, s)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev := readUntil(t, ws, ofType(MsgError))
	assert.Contains(t, ev.Error, "invalid message")

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: "dance"}))
	ev = readUntil(t, ws, ofType(MsgError))
	assert.Contains(t, ev.Error, `unknown message type "dance"`)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MsgSubmit}))
	ev = readUntil(t, ws, ofType(MsgError))
	assert.Contains(t, ev.Error, "not accepting answers")
}

func TestSessionCancel(t *testing.T) {
	s := newTestServer(t, "", nil)
	s.cfg.Session.CountdownSeconds = 5
	ws := dialSession(t, s)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MsgStart}))
	readUntil(t, ws, func(ev wsEvent) bool { return ev.State == "countdown" })

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MsgCancel}))
	ev := readUntil(t, ws, func(ev wsEvent) bool { return ev.Type == "state" && ev.State == "cancelled" })
	assert.Empty(t, ev.Question)
}

func TestStream(t *testing.T) {
	var seen clients.JudgeReq
	score := 90.0
	judge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&seen)
		_ = json.NewEncoder(w).Encode(clients.JudgeResp{Success: true, AIScore: &score, AIFeedback: "excellent"})
	}))
	defer judge.Close()

	s := newTestServer(t, judge.URL, judge.Client())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(func() { _ = s.Shutdown() })

	rec := &orchestrator.Recording{
		Answer: "Final answer.",
		Events: []orchestrator.RecEvent{
			{T: 0, Type: orchestrator.RecFrame, Landmarks: uprightTriples()},
			{T: 10, Type: orchestrator.RecAudio, Data: make([]int, 32)},
			{T: 20, Type: orchestrator.RecTranscript, Text: "partial"},
		},
	}
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := Stream(ctx, "ws://"+ln.Addr().String()+"/ws/session", rec, logger)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.UsedFallback)
	require.NotNil(t, res.AIScore)
	assert.Equal(t, 90.0, *res.AIScore)
	assert.Equal(t, "Final answer.", res.Answer)
	assert.Equal(t, "Final answer.", seen.Answer)
}

func TestStreamDialFailure(t *testing.T) {
	_, err := Stream(context.Background(), "ws://127.0.0.1:1/ws/session", &orchestrator.Recording{}, nil)
	assert.Error(t, err)
}
