package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/airenas/meetscribe/internal/pkg/utils"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const prompt = `Summarize the following meeting transcript. Include:
- key points discussed
- decisions made
- action items with their owners
- deadlines mentioned

Transcript:
%s`

// Client calls a chat completion API to summarize transcripts
type Client struct {
	httpclient *retryablehttp.Client
	url        string
	key        string
	model      string
}

// NewClient creates a summary client
func NewClient(urlStr, key, model string, timeout time.Duration, retries int) (*Client, error) {
	u, err := utils.ValidateURL(urlStr, "summary.url")
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.New("No summary.key provided")
	}
	if model == "" {
		return nil, errors.New("No summary.model provided")
	}
	res := Client{key: key, model: model}
	res.url = utils.URLJoin(u, "chat", "completions")
	res.httpclient = retryablehttp.NewClient()
	res.httpclient.RetryMax = retries
	res.httpclient.RetryWaitMin = 500 * time.Millisecond
	res.httpclient.RetryWaitMax = 2 * time.Second
	res.httpclient.HTTPClient.Timeout = timeout
	res.httpclient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	res.httpclient.Logger = cmdapp.Log
	cmdapp.Log.Infof("Summary: %s, model: %s", utils.URLToLog(u), model)
	return &res, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type response struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Summarize returns a summary of the transcript text
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	data := request{Model: c.model, Temperature: 0.3, MaxTokens: 4000,
		Messages: []message{{Role: "user", Content: fmt.Sprintf(prompt, text)}}}
	bytesData, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrap(err, "can't marshal request")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bytesData))
	if err != nil {
		return "", errors.Wrap(err, "can't prepare request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.key)
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "can't call summary API")
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return "", errors.Wrap(err, "can't summarize")
	}
	var respData response
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", errors.Wrap(err, "can't decode summary response")
	}
	if len(respData.Choices) == 0 || strings.TrimSpace(respData.Choices[0].Message.Content) == "" {
		return "", errors.New("empty summary in response")
	}
	return strings.TrimSpace(respData.Choices[0].Message.Content), nil
}
