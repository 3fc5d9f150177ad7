package sign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "dycrawler/pkg/errors"
	"dycrawler/pkg/logger"
	"dycrawler/pkg/retry"
)

// Request carries everything the gateway needs to produce a token for
// one call. The query string must already be canonicalized; the
// gateway does not reorder parameters.
type Request struct {
	URI       string `json:"uri"`
	Query     string `json:"query"`
	UserAgent string `json:"user_agent"`
	Cookies   string `json:"cookies"`
}

// Signer produces the anti-automation token required by the platform.
// An empty token is always a failure, never "no signature needed";
// the one unsigned endpoint is special-cased by the caller.
type Signer interface {
	Sign(ctx context.Context, req *Request) (string, error)
}

// GatewayClient talks to an external signing service over HTTP.
type GatewayClient struct {
	endpoint   string
	httpClient *http.Client
	attempts   int
	delay      time.Duration
	logger     logger.Logger
}

// gatewayResponse is the gateway's wire shape. Variants are normalized
// here, not at call sites.
type gatewayResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Token string `json:"a_bogus"`
	} `json:"data"`
}

// NewGatewayClient creates a signing client against the given endpoint.
func NewGatewayClient(endpoint string, timeout time.Duration, log logger.Logger) *GatewayClient {
	if log == nil {
		log = logger.GetLogger()
	}
	return &GatewayClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		attempts:   3,
		delay:      500 * time.Millisecond,
		logger:     log,
	}
}

// Sign requests a token from the gateway, retrying a bounded number of
// times with fixed spacing before escalating.
func (c *GatewayClient) Sign(ctx context.Context, req *Request) (string, error) {
	token, err := retry.DoWithResult(func() (string, error) {
		return c.signOnce(ctx, req)
	}, &retry.Config{
		MaxAttempts: c.attempts,
		Backoff:     &retry.ConstantBackoff{Delay: c.delay},
		RetryIf:     func(err error) bool { return err != nil },
		Context:     ctx,
		Logger:      c.logger,
	})
	if err != nil {
		return "", errs.Newf(errs.KindSignFailure, 0, "signing failed for %s: %v", req.URI, err)
	}
	return token, nil
}

func (c *GatewayClient) signOnce(ctx context.Context, req *Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/signature", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sign request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sign service returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read sign response: %w", err)
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("malformed sign response: %w", err)
	}
	if parsed.Code != 0 {
		return "", fmt.Errorf("sign service error code %d: %s", parsed.Code, parsed.Msg)
	}
	if parsed.Data.Token == "" {
		return "", fmt.Errorf("sign service returned an empty token")
	}

	return parsed.Data.Token, nil
}
