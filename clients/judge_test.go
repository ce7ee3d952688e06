package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func judgeServer(t *testing.T, h http.HandlerFunc) (*HTTP, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPWithClient(srv.Client()), srv.URL
}

func score(v float64) *float64 { return &v }

func TestJudge_Success(t *testing.T) {
	var got JudgeReq
	h, url := judgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(JudgeResp{
			Success: true, AIScore: score(72), AIFeedback: "solid", FaceScore: got.FaceScore, FinalScore: 73,
		})
	})

	resp, err := h.Judge(context.Background(), url, JudgeReq{Question: "q", Answer: "a", FaceScore: 80})
	require.NoError(t, err)
	require.NotNil(t, resp.AIScore)
	assert.Equal(t, 72.0, *resp.AIScore)
	assert.Equal(t, "solid", resp.AIFeedback)
	assert.Equal(t, JudgeReq{Question: "q", Answer: "a", FaceScore: 80}, got)
}

func TestJudge_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		is      error
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			is: ErrMalformedJudgeResponse,
		},
		{
			name: "success false",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":false,"error":"model down"}`))
			},
			is: ErrJudgeRejected,
		},
		{
			name: "success without aiScore",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":true,"aiFeedback":"ok"}`))
			},
			is: ErrMalformedJudgeResponse,
		},
		{
			name: "score out of range",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":true,"aiScore":140}`))
			},
			is: ErrMalformedJudgeResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, url := judgeServer(t, tt.handler)
			_, err := h.Judge(context.Background(), url, JudgeReq{Question: "q", Answer: "a"})
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestJudge_ContextTimeout(t *testing.T) {
	h, url := judgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.Judge(ctx, url, JudgeReq{})
	require.Error(t, err)
}

func TestJudgeAvailable(t *testing.T) {
	h, url := judgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	assert.True(t, h.JudgeAvailable(context.Background(), url))
	assert.False(t, h.JudgeAvailable(context.Background(), ""))
	assert.False(t, NewHTTP().JudgeAvailable(context.Background(), "http://127.0.0.1:1"))
}
