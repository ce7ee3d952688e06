package clients

import (
	"net/http"
	"time"
)

type HTTP struct{ c *http.Client }

func NewHTTP() *HTTP { return &HTTP{c: &http.Client{Timeout: 60 * time.Second}} }

// NewHTTPWithClient wraps a caller-provided client, e.g. one from httptest.
func NewHTTPWithClient(c *http.Client) *HTTP { return &HTTP{c: c} }
