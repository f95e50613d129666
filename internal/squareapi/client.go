package squareapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Bodies above this size are truncated
const MaxResponseSize = 1 << 20

type Client struct {
	url           string
	accessToken   string
	version       string
	customHeaders map[string]string
	client        *http.Client
}

func New(config Config) (c *Client) {
	c = &Client{
		url:           config.Url,
		accessToken:   config.AccessToken,
		version:       config.Version,
		customHeaders: config.CustomHeaders,
		client:        config.Client,
	}
	if c.version == "" {
		c.version = DefaultVersion
	}
	if c.client == nil {
		c.client = http.DefaultClient
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body any) (status int, contents []byte, err error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to prepare request: %w", err)
	}
	for key, value := range c.customHeaders {
		req.Header.Set(key, value)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Square-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	contents, err = io.ReadAll(io.LimitReader(res.Body, MaxResponseSize))
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return res.StatusCode, contents, nil
}

// CreatePayment charges the source. Non 2xx answers are returned as *APIError
func (c *Client) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (res *CreatePaymentResponse, err error) {
	status, contents, err := c.do(ctx, http.MethodPost, "/v2/payments", req)
	if err != nil {
		return nil, err
	}

	res = &CreatePaymentResponse{Raw: json.RawMessage(contents)}
	if len(contents) > 0 {
		err = json.Unmarshal(contents, res)
		if err != nil && status/100 == 2 {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	if status/100 != 2 {
		return nil, &APIError{
			StatusCode: status,
			Errors:     res.Errors,
			Payment:    res.Payment,
			Raw:        res.Raw,
		}
	}
	if res.Payment == nil {
		return nil, fmt.Errorf("response without payment: %s", contents)
	}
	return res, nil
}
