package douyin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dycrawler/pkg/account"
	errs "dycrawler/pkg/errors"
	"dycrawler/pkg/logger"
	"dycrawler/pkg/proxy"
	"dycrawler/pkg/retry"
	"dycrawler/pkg/sign"
)

type keywordKey struct{}

// WithKeyword stamps the active search keyword onto the context so
// downstream calls (comment referers, source attribution) can read it
// without ambient globals.
func WithKeyword(ctx context.Context, keyword string) context.Context {
	return context.WithValue(ctx, keywordKey{}, keyword)
}

// KeywordFrom returns the keyword carried by the context, if any.
func KeywordFrom(ctx context.Context) string {
	keyword, _ := ctx.Value(keywordKey{}).(string)
	return keyword
}

// ClientConfig holds the request client's tunables.
type ClientConfig struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RetryAttempts     int           // transport retries per call
	RetryDelay        time.Duration // spacing between transport retries
	RateLimitSleep    time.Duration // backoff after a 429
	RequestsPerSecond float64
	MaxBindAttempts   int // identity acquisitions before giving up
	BindDelay         time.Duration
}

// DefaultClientConfig returns the policy the platform tolerates: five
// transport retries a second apart, ten seconds after a throttle, and
// at most ten identity acquisitions per binding.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:           BaseURL,
		UserAgent:         FixedUserAgent,
		Timeout:           10 * time.Second,
		RetryAttempts:     5,
		RetryDelay:        time.Second,
		RateLimitSleep:    10 * time.Second,
		RequestsPerSecond: 2,
		MaxBindAttempts:   10,
		BindDelay:         2 * time.Second,
	}
}

// binding is one credential/proxy pairing plus the HTTP client routed
// through that proxy. Fetches work on an immutable snapshot of it.
type binding struct {
	cred   *account.Credential
	prox   *proxy.Endpoint
	client *http.Client
}

func (b binding) cookies() string {
	if b.cred == nil {
		return ""
	}
	return b.cred.Cookies
}

// Client issues typed, signed API calls using one bound identity.
// Failures are classified and recovered according to a fixed policy:
// transport errors are retried in place, identity errors rotate the
// binding and retry once, throttles back off without rotating.
//
// Fetches may run concurrently; a rotation in progress holds the
// write lock and blocks them until the new binding is installed.
type Client struct {
	cfg      ClientConfig
	accounts *account.Pool
	proxies  *proxy.Pool // nil when proxying is disabled
	signer   sign.Signer
	verify   *VerifyParams
	limiter  *rate.Limiter
	logger   logger.Logger

	mu   sync.RWMutex
	bind binding
}

// NewClient creates a request client. The proxy pool may be nil.
func NewClient(cfg ClientConfig, accounts *account.Pool, proxies *proxy.Pool, signer sign.Signer, verify *VerifyParams, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	def := DefaultClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.MaxBindAttempts <= 0 {
		cfg.MaxBindAttempts = def.MaxBindAttempts
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}

	c := &Client{
		cfg:      cfg,
		accounts: accounts,
		proxies:  proxies,
		signer:   signer,
		verify:   verify,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:   log,
	}
	c.bind = binding{client: c.newHTTPClient(nil)}
	return c
}

func (c *Client) newHTTPClient(ep *proxy.Endpoint) *http.Client {
	transport := &http.Transport{}
	if ep != nil {
		transport.Proxy = http.ProxyURL(ep.URL())
	}
	return &http.Client{
		Timeout:   c.cfg.Timeout,
		Transport: transport,
	}
}

func (c *Client) snapshot() binding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bind
}

// newBinding pairs a credential with a proxy, reusing the previous
// HTTP client when the proxy did not change so keep-alive connections
// survive credential-only rotations.
func (c *Client) newBinding(cred *account.Credential, ep *proxy.Endpoint) binding {
	prev := c.bind
	sameProxy := (ep == nil && prev.prox == nil) ||
		(ep != nil && prev.prox != nil && ep.Equal(prev.prox))

	client := prev.client
	if client == nil || !sameProxy {
		client = c.newHTTPClient(ep)
	}
	return binding{cred: cred, prox: ep, client: client}
}

// BindIdentity acquires a working credential (and proxy, when enabled)
// and verifies it with a liveness probe. Unusable identities are
// invalidated and the next one is tried, up to MaxBindAttempts; after
// that the run is over.
func (c *Client) BindIdentity(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindLocked(ctx)
}

func (c *Client) bindLocked(ctx context.Context) error {
	for attempt := 1; attempt <= c.cfg.MaxBindAttempts; attempt++ {
		if attempt > 1 && c.cfg.BindDelay > 0 {
			if err := retry.Wait(ctx, c.cfg.BindDelay); err != nil {
				return err
			}
		}

		c.logger.InfoWithFields("binding identity", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": c.cfg.MaxBindAttempts,
		})

		cred, err := c.accounts.AcquireActive()
		if err != nil {
			c.logger.WarnWithFields("no active credential available", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		var ep *proxy.Endpoint
		if c.proxies != nil {
			ep, err = c.proxies.Acquire(ctx)
			if err != nil {
				c.logger.WarnWithFields("failed to acquire proxy", map[string]interface{}{
					"attempt": attempt,
					"error":   err.Error(),
				})
				continue
			}
		}

		candidate := c.newBinding(cred, ep)
		if c.probe(ctx, candidate) {
			c.bind = candidate
			c.logger.InfoWithFields("identity bound", map[string]interface{}{
				"credential": cred.Name,
			})
			return nil
		}

		c.logger.WarnWithFields("credential failed liveness probe, invalidating", map[string]interface{}{
			"credential": cred.Name,
		})
		c.accounts.Invalidate(cred)
		if ep != nil {
			c.proxies.Invalidate(ctx, ep)
		}
	}

	return errs.Newf(errs.KindIdentityExhausted, 0,
		"no usable credential after %d attempts", c.cfg.MaxBindAttempts)
}

// Pong probes whether the current identity is accepted by the
// platform.
func (c *Client) Pong(ctx context.Context) bool {
	return c.probe(ctx, c.snapshot())
}

// probe checks login state via the history endpoint: application
// status 0 means logged in, 8 means not.
func (c *Client) probe(ctx context.Context, b binding) bool {
	params := url.Values{
		"max_cursor": {"0"},
		"count":      {"20"},
	}
	query, err := c.buildQuery(ctx, b, HistoryReadURI, params, true)
	if err != nil {
		c.logger.WarnWithFields("liveness probe signing failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}

	body, err := c.doOnce(ctx, b, http.MethodGet, HistoryReadURI, query, nil)
	if err != nil {
		c.logger.WarnWithFields("liveness probe failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}

	var parsed historyReadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false
	}
	return parsed.StatusCode == 0
}

// checkProxyExpired swaps out an expired proxy for a fresh one without
// touching the credential. Expiry is checked before every request
// since it can lapse mid-run.
func (c *Client) checkProxyExpired(ctx context.Context) error {
	if c.proxies == nil {
		return nil
	}
	c.mu.RLock()
	expired := c.bind.prox != nil && c.bind.prox.IsExpired()
	c.mu.RUnlock()
	if !expired {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bind.prox == nil || !c.bind.prox.IsExpired() {
		return nil
	}

	c.logger.InfoWithFields("bound proxy expired, replacing", map[string]interface{}{
		"proxy": c.bind.prox.String(),
	})
	c.proxies.Invalidate(ctx, c.bind.prox)

	ep, err := c.proxies.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to replace expired proxy: %w", err)
	}
	c.bind = c.newBinding(c.bind.cred, ep)
	return nil
}

// buildQuery merges operation parameters with the fixed browser
// parameters and verify parameters, canonicalizes them, and obtains a
// token when the endpoint requires one. Unsigned calls carry only
// their own parameters.
func (c *Client) buildQuery(ctx context.Context, b binding, uri string, params url.Values, signed bool) (string, error) {
	if !signed {
		return params.Encode(), nil
	}

	merged := url.Values{}
	for key, vals := range commonParams() {
		merged[key] = vals
	}
	if c.verify != nil {
		merged.Set("webid", c.verify.WebID)
		merged.Set("msToken", c.verify.MsToken)
		merged.Set("s_v_web_id", c.verify.SVWebID)
	}
	for key, vals := range params {
		merged[key] = vals
	}

	canonical := merged.Encode()
	token, err := c.signer.Sign(ctx, &sign.Request{
		URI:       uri,
		Query:     canonical,
		UserAgent: c.cfg.UserAgent,
		Cookies:   b.cookies(),
	})
	if err != nil {
		return "", err
	}
	return canonical + "&a_bogus=" + url.QueryEscape(token), nil
}

func (c *Client) defaultHeaders(b binding) map[string]string {
	return map[string]string{
		"Content-Type":    "application/json",
		"Accept":          "application/json",
		"Accept-Language": "zh-CN,zh;q=0.9",
		"Cookie":          b.cookies(),
		"Origin":          c.cfg.BaseURL,
		"Referer":         c.cfg.BaseURL + "/user/self",
		"User-Agent":      c.cfg.UserAgent,
	}
}

// doOnce sends one HTTP request with the given binding and classifies
// the outcome.
func (c *Client) doOnce(ctx context.Context, b binding, method, uri, query string, headers map[string]string) ([]byte, error) {
	target := c.cfg.BaseURL + uri + "?" + query
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, errs.Newf(errs.KindTransport, 0, "failed to build request: %v", err)
	}

	for key, value := range c.defaultHeaders(b) {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		if value == "" {
			req.Header.Del(key)
			continue
		}
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errs.Newf(errs.KindTransport, 0, "request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Newf(errs.KindTransport, resp.StatusCode, "failed to read response: %v", err)
	}

	c.logger.DebugWithFields("api request completed", map[string]interface{}{
		"method":   method,
		"uri":      uri,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	return c.classify(uri, resp.StatusCode, body)
}

// classify maps the HTTP status and application status onto the error
// taxonomy. A non-zero application code outside the known identity
// codes is logged and the payload still returned for best-effort use.
func (c *Client) classify(uri string, status int, body []byte) ([]byte, error) {
	switch {
	case status == http.StatusUnauthorized:
		return nil, errs.New(errs.KindUnauthorized, "account unauthorized", status)
	case status == http.StatusForbidden:
		return nil, errs.New(errs.KindBlocked, "account blocked", status)
	case status == http.StatusTooManyRequests:
		return nil, errs.New(errs.KindRateLimited, "rate limited", status)
	case status != http.StatusOK:
		return nil, errs.Newf(errs.KindTransport, status, "unexpected status %d", status)
	}

	text := string(body)
	if text == "" || text == "blocked" {
		return nil, errs.New(errs.KindBlocked, "request intercepted", status)
	}

	var probe envelope
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, errs.Newf(errs.KindTransport, status, "malformed response: %v", err)
	}

	switch probe.StatusCode {
	case 0, 1:
		return body, nil
	case 8, 10007, 10008:
		return nil, errs.Newf(errs.KindUnauthorized, probe.StatusCode,
			"account not accepted: %s", probe.StatusMsg)
	default:
		c.logger.WarnWithFields("application error in response", map[string]interface{}{
			"uri":        uri,
			"app_status": probe.StatusCode,
			"app_msg":    probe.StatusMsg,
		})
		return body, nil
	}
}

// attempt runs one call with transport-level retries. Identity and
// throttle errors fail fast so the outer policy can handle them.
func (c *Client) attempt(ctx context.Context, method, uri string, params url.Values, signed bool, headers map[string]string) ([]byte, error) {
	return retry.DoWithResult(func() ([]byte, error) {
		if err := c.checkProxyExpired(ctx); err != nil {
			return nil, err
		}

		b := c.snapshot()
		query, err := c.buildQuery(ctx, b, uri, params, signed)
		if err != nil {
			return nil, err
		}
		return c.doOnce(ctx, b, method, uri, query, headers)
	}, &retry.Config{
		MaxAttempts: c.cfg.RetryAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: c.cfg.RetryDelay},
		RetryIf:     errs.IsRetryable,
		Context:     ctx,
		Logger:      c.logger,
	})
}

// rotate invalidates the failed binding and installs a fresh one. If
// another goroutine already rotated past the failed credential, the
// current binding is kept and nothing is invalidated twice.
func (c *Client) rotate(ctx context.Context, failed *account.Credential, invalidateProxy bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bind.cred != failed {
		return nil
	}

	if c.bind.cred != nil {
		c.accounts.Invalidate(c.bind.cred)
		c.logger.InfoWithFields("rotating identity", map[string]interface{}{
			"invalidated": c.bind.cred.Name,
		})
	}
	if invalidateProxy && c.proxies != nil && c.bind.prox != nil {
		c.proxies.Invalidate(ctx, c.bind.prox)
	}

	return c.bindLocked(ctx)
}

// call runs one operation under the full recovery policy.
func (c *Client) call(ctx context.Context, method, uri string, params url.Values, signed bool, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	boundCred := c.snapshot().cred

	body, err := c.attempt(ctx, method, uri, params, signed, headers)
	if err == nil {
		return body, nil
	}

	switch kind := errs.KindOf(err); kind {
	case errs.KindUnauthorized, errs.KindBlocked:
		c.logger.WarnWithFields("identity rejected, rotating", map[string]interface{}{
			"uri":  uri,
			"kind": string(kind),
		})
		if rotateErr := c.rotate(ctx, boundCred, kind == errs.KindBlocked); rotateErr != nil {
			return nil, rotateErr
		}
		return c.attempt(ctx, method, uri, params, signed, headers)

	case errs.KindRateLimited:
		c.logger.WarnWithFields("rate limited, backing off", map[string]interface{}{
			"uri":   uri,
			"sleep": c.cfg.RateLimitSleep,
		})
		if waitErr := retry.Wait(ctx, c.cfg.RateLimitSleep); waitErr != nil {
			return nil, waitErr
		}
		return c.attempt(ctx, method, uri, params, signed, headers)

	case errs.KindTransport:
		// The in-place retry budget is spent; a fresh identity is the
		// last thing to try before giving up on the call.
		c.logger.WarnWithFields("transport retries exhausted, rotating", map[string]interface{}{
			"uri": uri,
		})
		if rotateErr := c.rotate(ctx, boundCred, false); rotateErr != nil {
			return nil, rotateErr
		}
		return c.attempt(ctx, method, uri, params, signed, headers)

	default:
		return nil, err
	}
}

func (c *Client) getJSON(ctx context.Context, uri string, params url.Values, signed bool, headers map[string]string, target interface{}) error {
	body, err := c.call(ctx, http.MethodGet, uri, params, signed, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errs.Newf(errs.KindTransport, 0, "failed to decode %s response: %v", uri, err)
	}
	return nil
}

func (c *Client) verifyFpParams() url.Values {
	params := url.Values{}
	if c.verify != nil {
		params.Set("verifyFp", c.verify.VerifyFp)
		params.Set("fp", c.verify.VerifyFp)
	}
	return params
}

// searchReferer reproduces the browser navigation the comment
// endpoints expect, keyed on the active search keyword.
func (c *Client) searchReferer(ctx context.Context) string {
	keyword := KeywordFrom(ctx)
	return c.cfg.BaseURL + "/search/" + url.PathEscape(keyword) +
		"?aid=3a3cec5a-9e27-4040-b6aa-ef548c2c1138&publish_time=0&sort_type=0&source=search_history&type=general"
}

// SearchPage is one flattened page of keyword search results.
// SearchID carries the session id the next page request must echo.
type SearchPage struct {
	Awemes   []*Aweme
	SearchID string
}

// PostsPage is one flattened page of a creator's timeline.
type PostsPage struct {
	Awemes    []*Aweme
	MaxCursor int64
	HasMore   int
}

// FeedPage is one flattened homefeed page. A non-zero StatusCode
// means the feed has nothing more to give.
type FeedPage struct {
	StatusCode int
	Awemes     []*Aweme
}

// SearchByKeyword fetches one page of keyword search results.
// searchID is empty for the first page and must carry the previous
// response's session id afterwards.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, offset int, sort SearchSort, publish PublishTime, searchID string) (*SearchPage, error) {
	params := url.Values{
		"search_channel":       {string(ChannelGeneral)},
		"enable_history":       {"1"},
		"keyword":              {keyword},
		"search_source":        {"tab_search"},
		"query_correct_type":   {"1"},
		"is_filter_search":     {"0"},
		"from_group_id":        {"7378810571505847586"},
		"offset":               {strconv.Itoa(offset)},
		"count":                {"10"},
		"need_filter_settings": {"1"},
		"list_type":            {"multi"},
		"search_id":            {searchID},
	}
	if sort != SortGeneral || publish != PublishUnlimited {
		filter, _ := json.Marshal(map[string]string{
			"sort_type":    strconv.Itoa(int(sort)),
			"publish_time": strconv.Itoa(int(publish)),
		})
		params.Set("filter_selected", string(filter))
		params.Set("is_filter_search", "1")
	}

	var resp searchResponse
	if err := c.getJSON(ctx, SearchURI, params, true, nil, &resp); err != nil {
		return nil, err
	}
	return &SearchPage{Awemes: resp.awemes(), SearchID: resp.Extra.Logid}, nil
}

// GetAwemeByID fetches one content item's detail.
func (c *Client) GetAwemeByID(ctx context.Context, awemeID string) (*Aweme, error) {
	params := c.verifyFpParams()
	params.Set("aweme_id", awemeID)

	// The detail endpoint rejects requests carrying an Origin header.
	headers := map[string]string{"Origin": ""}

	var resp detailResponse
	if err := c.getJSON(ctx, AwemeDetailURI, params, true, headers, &resp); err != nil {
		return nil, err
	}
	return extractAweme(resp.AwemeDetail), nil
}

// GetAwemeComments fetches one page of an item's comment thread.
func (c *Client) GetAwemeComments(ctx context.Context, awemeID string, cursor int64) ([]*Comment, *CommentsResponse, error) {
	params := c.verifyFpParams()
	params.Set("aweme_id", awemeID)
	params.Set("cursor", strconv.FormatInt(cursor, 10))
	params.Set("count", "20")
	params.Set("item_type", "0")

	headers := map[string]string{"Referer": c.searchReferer(ctx)}

	var resp CommentsResponse
	if err := c.getJSON(ctx, CommentListURI, params, true, headers, &resp); err != nil {
		return nil, nil, err
	}
	return extractComments(awemeID, resp.Comments), &resp, nil
}

// GetSubComments fetches one page of replies under a comment.
func (c *Client) GetSubComments(ctx context.Context, commentID string, cursor int64, awemeID string) ([]*Comment, *CommentsResponse, error) {
	params := c.verifyFpParams()
	params.Set("comment_id", commentID)
	params.Set("cursor", strconv.FormatInt(cursor, 10))
	params.Set("count", "20")
	params.Set("item_type", "0")

	headers := map[string]string{"Referer": c.searchReferer(ctx)}

	var resp CommentsResponse
	if err := c.getJSON(ctx, SubCommentListURI, params, true, headers, &resp); err != nil {
		return nil, nil, err
	}
	return extractComments(awemeID, resp.Comments), &resp, nil
}

// GetUserInfo fetches a creator's profile.
func (c *Client) GetUserInfo(ctx context.Context, secUserID string) (*Creator, error) {
	params := c.verifyFpParams()
	params.Set("sec_user_id", secUserID)
	params.Set("publish_video_strategy_type", "2")
	params.Set("personal_center_strategy", "1")

	var resp userResponse
	if err := c.getJSON(ctx, UserProfileURI, params, true, nil, &resp); err != nil {
		return nil, err
	}
	return extractCreator(resp.User), nil
}

// GetUserPosts fetches one page of a creator's timeline.
func (c *Client) GetUserPosts(ctx context.Context, secUserID string, maxCursor int64) (*PostsPage, error) {
	params := c.verifyFpParams()
	params.Set("sec_user_id", secUserID)
	params.Set("count", "18")
	params.Set("max_cursor", strconv.FormatInt(maxCursor, 10))
	params.Set("locate_query", "false")
	params.Set("publish_video_strategy_type", "2")

	var resp userPostsResponse
	if err := c.getJSON(ctx, UserPostsURI, params, true, nil, &resp); err != nil {
		return nil, err
	}
	return &PostsPage{Awemes: resp.awemes(), MaxCursor: resp.MaxCursor, HasMore: resp.HasMore}, nil
}

// GetHomefeed fetches one homefeed page. This is the single unsigned
// endpoint; it is POSTed with all parameters in the query string.
func (c *Client) GetHomefeed(ctx context.Context, tag FeedTag, refreshIndex, count int) (*FeedPage, error) {
	params := homefeedParams()
	params.Set("tag_id", strconv.Itoa(int(tag)))
	params.Set("refresh_index", strconv.Itoa(refreshIndex))
	params.Set("count", strconv.Itoa(count))

	headers := map[string]string{
		"Referer":             c.cfg.BaseURL + "/discover",
		"Content-Type":        "application/x-www-form-urlencoded; charset=UTF-8",
		"X-Secsdk-Csrf-Token": "DOWNGRADE",
	}

	body, err := c.call(ctx, http.MethodPost, HomefeedURI, params, false, headers)
	if err != nil {
		return nil, err
	}
	var resp feedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errs.Newf(errs.KindTransport, 0, "failed to decode feed response: %v", err)
	}
	return &FeedPage{StatusCode: resp.StatusCode, Awemes: resp.awemes(c.logger)}, nil
}
