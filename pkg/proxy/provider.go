package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dycrawler/pkg/logger"
)

// ErrProvider means the upstream proxy provider returned a non-success
// response.
var ErrProvider = errors.New("proxy provider error")

// Provider supplies proxy endpoints and accepts invalidation reports.
// Implementations are swappable behind this interface.
type Provider interface {
	// FetchProxies obtains up to count fresh endpoints.
	FetchProxies(ctx context.Context, count int) ([]*Endpoint, error)

	// MarkInvalid reports an endpoint as dead so the provider stops
	// handing it out. Best-effort; errors are logged, not propagated.
	MarkInvalid(ctx context.Context, ep *Endpoint) error
}

// HTTPProvider fetches endpoints from a JSON HTTP API.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// providerResponse is the wire shape of the provider API.
type providerResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		IP        string `json:"ip"`
		Port      string `json:"port"`
		User      string `json:"user"`
		Password  string `json:"password"`
		Protocol  string `json:"protocol"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"data"`
}

// NewHTTPProvider creates a provider client against the given base URL.
func NewHTTPProvider(baseURL string, timeout time.Duration, log logger.Logger) *HTTPProvider {
	if log == nil {
		log = logger.GetLogger()
	}
	return &HTTPProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// FetchProxies obtains up to count endpoints from the provider API.
func (p *HTTPProvider) FetchProxies(ctx context.Context, count int) ([]*Endpoint, error) {
	endpoint := fmt.Sprintf("%s/fetch?num=%d", p.baseURL, count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	var parsed providerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrProvider, err)
	}
	if parsed.Code != 0 {
		return nil, fmt.Errorf("%w: code %d: %s", ErrProvider, parsed.Code, parsed.Msg)
	}

	endpoints := make([]*Endpoint, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		port, err := strconv.Atoi(item.Port)
		if err != nil {
			p.logger.WarnWithFields("skipping proxy with bad port", map[string]interface{}{
				"ip":   item.IP,
				"port": item.Port,
			})
			continue
		}
		protocol := item.Protocol
		if protocol == "" {
			protocol = "http"
		}
		endpoints = append(endpoints, &Endpoint{
			Host:      item.IP,
			Port:      port,
			User:      item.User,
			Password:  item.Password,
			Protocol:  protocol,
			ExpiresAt: item.ExpiresAt,
		})
	}

	p.logger.DebugWithFields("fetched proxies from provider", map[string]interface{}{
		"requested": count,
		"received":  len(endpoints),
	})
	return endpoints, nil
}

// MarkInvalid reports a dead endpoint back to the provider.
func (p *HTTPProvider) MarkInvalid(ctx context.Context, ep *Endpoint) error {
	endpoint := fmt.Sprintf("%s/invalidate?ip=%s&port=%d",
		p.baseURL, url.QueryEscape(ep.Host), ep.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}
	return nil
}
