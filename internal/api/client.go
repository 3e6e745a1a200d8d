package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/automail/internal/model"
)

// envelope is the wrapper every JSON endpoint of the service answers
// with. Success carries the payload as the single element of Data;
// failure sets Error. Both usually arrive with HTTP 200, so Code is the
// authoritative status.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// detailResponse is the body of framework-level failures, used by the
// raw download endpoint.
type detailResponse struct {
	Detail string `json:"detail"`
}

// Client is a thin HTTP client for one service group. It builds request
// URLs from the group's base address, applies the group timeout, and
// decodes the response envelope. Requests are never retried: a failure
// is logged and handed back to the caller unchanged.
type Client struct {
	group      string
	baseURL    string
	httpClient *http.Client
	header     http.Header
}

// NewClient creates a client for the named group.
func NewClient(group string, svc model.ServiceConfig) *Client {
	timeout := svc.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		group:   group,
		baseURL: strings.TrimRight(svc.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		header: http.Header{},
	}
}

// Group returns the name of the service group this client talks to.
func (c *Client) Group() string {
	return c.group
}

// BaseURL returns the group root every request path is joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHeader adds a header sent with every request of this client.
func (c *Client) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// Get performs a GET and decodes the envelope payload into result.
func (c *Client) Get(
	ctx context.Context,
	path string,
	query url.Values,
	result interface{},
) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

// Post performs a POST with a JSON body and decodes the envelope
// payload into result.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body interface{},
	result interface{},
) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

// Put performs a PUT with a JSON body.
func (c *Client) Put(
	ctx context.Context,
	path string,
	body interface{},
	result interface{},
) error {
	return c.do(ctx, http.MethodPut, path, nil, body, result)
}

// Delete performs a DELETE.
func (c *Client) Delete(
	ctx context.Context,
	path string,
	result interface{},
) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, result)
}

// do validates and encodes body, sends the request, and decodes the
// envelope. result may be nil when the caller does not need the payload.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body interface{},
	result interface{},
) (err error) {
	start := time.Now()
	if err := Validate(body); err != nil {
		c.finish(method, path, outcomeInvalid, start, err)
		return err
	}
	defer func() {
		c.finish(method, path, outcomeFor(err), start, err)
	}()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, query, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.exchange(req, path, result)
}

// newRequest builds a request against the group base address.
func (c *Client) newRequest(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body io.Reader,
) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// exchange sends req and decodes the enveloped response into result.
func (c *Client) exchange(req *http.Request, path string, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(req.Method, path, resp.StatusCode, respBody)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("decoding response of %s %s: %w", req.Method, path, err)
	}

	if env.Error != "" || env.Code >= 400 {
		return &Error{
			Group:      c.group,
			Method:     req.Method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Code:       env.Code,
			Message:    env.Message,
			Detail:     env.Error,
		}
	}

	if result == nil {
		return nil
	}
	return decodePayload(env.Data, result)
}

// decodePayload unpacks the first element of the data array into result.
// An absent, null or empty data array leaves result untouched.
func decodePayload(data json.RawMessage, result interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return fmt.Errorf("decoding envelope data: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	first := bytes.TrimSpace(items[0])
	if bytes.Equal(first, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(first, result); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

// statusError turns a non-2xx response into an *Error, pulling whatever
// explanation the body carries.
func (c *Client) statusError(method, path string, status int, body []byte) error {
	apiErr := &Error{
		Group:      c.group,
		Method:     method,
		Path:       path,
		StatusCode: status,
	}

	var env envelope
	if json.Unmarshal(body, &env) == nil && (env.Error != "" || env.Message != "") {
		apiErr.Code = env.Code
		apiErr.Message = env.Message
		apiErr.Detail = env.Error
		return apiErr
	}

	var detail detailResponse
	if json.Unmarshal(body, &detail) == nil && detail.Detail != "" {
		apiErr.Detail = detail.Detail
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

func (c *Client) finish(method, path, outcome string, start time.Time, err error) {
	observe(c.group, method, outcome, time.Since(start))
	if err == nil {
		return
	}
	log.WithFields(log.Fields{
		"group":  c.group,
		"method": method,
		"path":   path,
	}).WithError(err).Error("service request failed")
}

func outcomeFor(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}

// segment escapes a value used as a single path element.
func segment(s string) string {
	return "/" + url.PathEscape(s)
}
