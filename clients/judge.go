package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrJudgeRejected          = errors.New("judge reported failure")
	ErrMalformedJudgeResponse = errors.New("malformed judge response")
)

// --- Content judge (POST /) ---
type JudgeReq struct {
	Question  string  `json:"question"`
	Answer    string  `json:"answer"`
	FaceScore float64 `json:"faceScore"`
}

type JudgeResp struct {
	Success    bool     `json:"success"`
	AIScore    *float64 `json:"aiScore"`
	AIFeedback string   `json:"aiFeedback"`
	FaceScore  float64  `json:"faceScore"`
	FinalScore float64  `json:"finalScore"`
	Error      string   `json:"error,omitempty"`
	Message    string   `json:"message,omitempty"`
}

func (h *HTTP) Judge(ctx context.Context, url string, in JudgeReq) (*JudgeResp, error) {
	b, _ := json.Marshal(in)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("judge %s: %s", resp.Status, string(body))
	}

	var out JudgeResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("judge decode: %w: %v", ErrMalformedJudgeResponse, err)
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = out.Message
		}
		return nil, fmt.Errorf("%w: %s", ErrJudgeRejected, msg)
	}
	if out.AIScore == nil {
		return nil, fmt.Errorf("%w: missing aiScore", ErrMalformedJudgeResponse)
	}
	if score := *out.AIScore; score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: aiScore %v out of range", ErrMalformedJudgeResponse, score)
	}
	return &out, nil
}

// JudgeAvailable sends an OPTIONS request and reports whether the judge answered 2xx.
func (h *HTTP) JudgeAvailable(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, url, nil)
	if err != nil {
		return false
	}
	resp, err := h.c.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
