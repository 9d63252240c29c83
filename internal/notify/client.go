// Package notify delivers best-effort notifications to the external
// automation service: field edits, AI instructions and stage entries.
package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"consulta_backend/platform/config"

	"github.com/go-resty/resty/v2"
)

const (
	// HeaderSignature carries the HMAC-SHA256 of the body when a signing
	// secret is configured.
	HeaderSignature = "X-Webhook-Signature"

	signaturePrefix = "sha256="
)

// Client posts JSON bodies to webhook endpoints.
type Client struct {
	http          *resty.Client
	authToken     string
	signingSecret string
}

// NewClient builds a client without transport-level retries; retrying is
// the queue's job.
func NewClient(cfg config.WebhookConfig) *Client {
	return &Client{
		http: resty.New().
			SetTimeout(cfg.GetWebhookTimeout()).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json, text/plain"),
		authToken:     cfg.GetWebhookAuthToken(),
		signingSecret: cfg.GetWebhookSigningSecret(),
	}
}

// Post sends body to url and returns the raw response body. Non-2xx
// statuses are errors.
func (c *Client) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req := c.http.R().SetContext(ctx).SetBody(body)
	if c.authToken != "" {
		req.SetHeader("Authorization", c.authToken)
	}
	if c.signingSecret != "" {
		req.SetHeader(HeaderSignature, signaturePrefix+SignPayload(body, c.signingSecret))
	}

	resp, err := req.Post(url)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return resp.Body(), fmt.Errorf("webhook respondeu %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// SignPayload returns the hex HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a header value produced by Post.
func VerifySignature(payload []byte, secret, header string) bool {
	expected := signaturePrefix + SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(header))
}
