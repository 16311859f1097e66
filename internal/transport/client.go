package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// CredentialSource supplies the endpoint and token. It is read on every request
// so that credential changes take effect without rebuilding the client.
type CredentialSource interface {
	APIURL() (string, bool, error)
	BearerToken() (string, bool, error)
}

type Client struct {
	creds      CredentialSource
	httpClient *http.Client
}

func NewClient(creds CredentialSource, timeout time.Duration) *Client {
	return &Client{
		creds: creds,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewClientWithHTTP is used when the caller owns the http.Client (tests, custom transports).
func NewClientWithHTTP(creds CredentialSource, httpClient *http.Client) *Client {
	return &Client{creds: creds, httpClient: httpClient}
}

// BuildURL joins base and path with exactly one slash between them.
func BuildURL(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func (c *Client) Request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	baseURL, token, err := c.credentials()
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := BuildURL(baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &Error{Kind: KindConnectionFailed, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("url", url).Msg("Gate request failed before a response")
		return nil, &Error{Kind: KindConnectionFailed, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Gate request completed")

	return handleResponse(resp)
}

func (c *Client) credentials() (string, string, error) {
	baseURL, ok, err := c.creds.APIURL()
	if err != nil {
		return "", "", &Error{Kind: KindUnconfigured, Err: fmt.Errorf("read api url: %w", err)}
	}
	if !ok || baseURL == "" {
		return "", "", &Error{Kind: KindUnconfigured}
	}
	token, ok, err := c.creds.BearerToken()
	if err != nil {
		return "", "", &Error{Kind: KindUnconfigured, Err: fmt.Errorf("read bearer token: %w", err)}
	}
	if !ok || token == "" {
		return "", "", &Error{Kind: KindUnconfigured}
	}
	return baseURL, token, nil
}

type errorBody struct {
	Message string `json:"message"`
}

func handleResponse(resp *http.Response) (json.RawMessage, error) {
	status := resp.StatusCode
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Status: status, Err: err}
	}

	ok := status >= 200 && status < 300
	if !json.Valid(raw) {
		return nil, &Error{Kind: KindInvalidResponse, Status: status, RawBody: string(raw)}
	}

	if !ok {
		var eb errorBody
		message := ""
		if json.Unmarshal(raw, &eb) == nil {
			message = eb.Message
		}
		if message == "" {
			message = fmt.Sprintf("HTTP error %d", status)
		}
		return nil, &Error{Kind: KindServerRejected, Status: status, Message: message}
	}

	return json.RawMessage(raw), nil
}
