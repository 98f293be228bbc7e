package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/utils"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// Client communicates with the transcription provider REST API
type Client struct {
	httpclient *retryablehttp.Client
	uploadURL  string
	submitURL  string
	key        string
}

// NewClient creates a provider client
func NewClient(urlStr, key string, timeout time.Duration, retries int) (*Client, error) {
	u, err := utils.ValidateURL(urlStr, "provider.url")
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.New("No provider.key provided")
	}
	res := Client{key: key}
	res.uploadURL = utils.URLJoin(u, "upload")
	res.submitURL = utils.URLJoin(u, "transcript")
	res.httpclient = retryablehttp.NewClient()
	res.httpclient.RetryMax = retries
	res.httpclient.RetryWaitMin = 500 * time.Millisecond
	res.httpclient.RetryWaitMax = 2 * time.Second
	res.httpclient.HTTPClient.Timeout = timeout
	res.httpclient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	res.httpclient.Logger = cmdapp.Log
	cmdapp.Log.Infof("Provider: %s", utils.URLToLog(u))
	return &res, nil
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// Upload sends local audio file to the provider, returns URL for Submit
func (sp *Client) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrapf(ErrSubmission, "can't open %s: %v", localPath, err)
	}
	defer f.Close()
	cmdapp.Log.Infof("Uploading %s", localPath)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, sp.uploadURL, f)
	if err != nil {
		return "", errors.Wrap(err, "can't prepare request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	var respData uploadResponse
	if err := sp.call(req, &respData, "upload"); err != nil {
		return "", err
	}
	if respData.UploadURL == "" {
		return "", errors.Wrap(ErrSubmission, "no upload_url in response")
	}
	return respData.UploadURL, nil
}

type submitRequest struct {
	AudioURL         string `json:"audio_url"`
	LanguageCode     string `json:"language_code,omitempty"`
	SpeakerLabels    bool   `json:"speaker_labels"`
	SpeakersExpected int    `json:"speakers_expected,omitempty"`
}

type submitResponse struct {
	ID string `json:"id"`
}

// Submit starts transcription of audioURL, returns provider transcript ID
func (sp *Client) Submit(ctx context.Context, audioURL string, opts persistence.Options) (string, error) {
	data := submitRequest{AudioURL: audioURL, LanguageCode: opts.LanguageCode, SpeakerLabels: opts.SpeakerLabels}
	if opts.SpeakersExpected > 1 {
		data.SpeakersExpected = opts.SpeakersExpected
	}
	bytesData, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrap(err, "can't marshal request")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, sp.submitURL, bytes.NewReader(bytesData))
	if err != nil {
		return "", errors.Wrap(err, "can't prepare request")
	}
	req.Header.Set("Content-Type", "application/json")
	var respData submitResponse
	if err := sp.call(req, &respData, "submit"); err != nil {
		return "", err
	}
	if respData.ID == "" {
		return "", errors.Wrap(ErrSubmission, "no id in response")
	}
	cmdapp.Log.Infof("Submitted: %s", respData.ID)
	return respData.ID, nil
}

type transcriptResponse struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	Text          string      `json:"text"`
	Utterances    []Utterance `json:"utterances"`
	AudioDuration *float64    `json:"audio_duration"`
	Error         string      `json:"error"`
}

// Poll gets transcript status
func (sp *Client) Poll(ctx context.Context, providerRef string) (*Status, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, utils.URLJoin(sp.submitURL, providerRef), nil)
	if err != nil {
		return nil, errors.Wrap(err, "can't prepare request")
	}
	var respData transcriptResponse
	if err := sp.call(req, &respData, "poll"); err != nil {
		return nil, err
	}
	res := &Status{ID: providerRef, State: State(respData.Status), Utterances: respData.Utterances, Error: respData.Error}
	if respData.ID != "" {
		res.ID = respData.ID
	}
	if res.State == StateCompleted {
		res.Text, res.Speakers = FormatTranscript(respData.Text, respData.Utterances)
		if respData.AudioDuration != nil {
			res.DurationSeconds = int(math.Round(*respData.AudioDuration))
		}
	}
	if res.State == StateError && res.Error == "" {
		res.Error = "provider reported error"
	}
	return res, nil
}

func (sp *Client) call(req *retryablehttp.Request, result interface{}, name string) error {
	req.Header.Set("authorization", sp.key)
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return classify(err, "can't "+name)
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return classify(err, "can't "+name)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if name == "poll" {
			return errors.Wrapf(ErrTransient, "can't decode %s response: %v", name, err)
		}
		return errors.Wrapf(ErrSubmission, "can't decode %s response: %v", name, err)
	}
	return nil
}
