package summary

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestServer(t *testing.T, code int, resp string) (*Client, *http.Request, *request) {
	t.Helper()
	var got http.Request
	var gotBody request
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		got = *req
		b, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(b, &gotBody)
		rw.WriteHeader(code)
		rw.Write([]byte(resp))
	}))
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL+"/v1", "key", "model-x", time.Second, 0)
	require.Nil(t, err)
	return c, &got, &gotBody
}

func TestNewClient_Fail(t *testing.T) {
	_, err := NewClient("", "key", "m", time.Second, 0)
	assert.NotNil(t, err)
	_, err = NewClient("http://olia", "", "m", time.Second, 0)
	assert.NotNil(t, err)
	_, err = NewClient("http://olia", "key", "", time.Second, 0)
	assert.NotNil(t, err)
}

func TestSummarize(t *testing.T) {
	c, req, body := initTestServer(t, 200, `{"choices":[{"message":{"role":"assistant","content":" - decided A \n"}}]}`)

	res, err := c.Summarize(context.Background(), "Speaker A: hello")

	require.Nil(t, err)
	assert.Equal(t, "- decided A", res)
	assert.Equal(t, "/v1/chat/completions", req.URL.Path)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "Bearer key", req.Header.Get("Authorization"))
	assert.Equal(t, "model-x", body.Model)
	assert.Equal(t, 0.3, body.Temperature)
	assert.Equal(t, 4000, body.MaxTokens)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "user", body.Messages[0].Role)
	assert.Contains(t, body.Messages[0].Content, "Speaker A: hello")
	assert.Contains(t, body.Messages[0].Content, "action items")
}

func TestSummarize_Fail(t *testing.T) {
	tests := []struct {
		name string
		code int
		resp string
	}{
		{name: "status", code: 401, resp: `{"message":"Unauthorized"}`},
		{name: "no choices", code: 200, resp: `{"choices":[]}`},
		{name: "empty content", code: 200, resp: `{"choices":[{"message":{"content":"  "}}]}`},
		{name: "bad json", code: 200, resp: `{"choices":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := initTestServer(t, tt.code, tt.resp)
			_, err := c.Summarize(context.Background(), "olia")
			assert.NotNil(t, err)
		})
	}
}
