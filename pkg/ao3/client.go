package ao3

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/thalida/ao3-sync/pkg/logger"
	"github.com/thalida/ao3-sync/pkg/ratelimit"
)

// Fetcher is the paced, authenticated fetch surface the sync engine and the
// downloader consume. Decorators (debug cache, retry) wrap this interface.
type Fetcher interface {
	// Fetch performs a GET of path with the given query parameters and
	// returns the response body on HTTP 200.
	Fetch(path string, query url.Values) ([]byte, error)
}

// Client is the rate-limited, authenticated archive client. One instance
// holds one logical session: a shared cookie jar, a shared pacing clock, and
// an authenticated flag that flips once after the first successful login.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	headers    map[string]string
	baseURL    string
	logger     logger.Logger

	username      string
	password      string
	authenticated bool
}

// ClientOptions configures a Client
type ClientOptions struct {
	Username string
	Password string
	// RequestDelay is the minimum spacing between requests; zero uses the default 4s
	RequestDelay time.Duration
	// Timeout bounds a single request at the transport level
	Timeout time.Duration
	// BaseURL overrides the archive host, for tests
	BaseURL string
	Logger  logger.Logger
}

// NewClient creates an archive client
func NewClient(opts ClientOptions) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	delay := opts.RequestDelay
	if delay <= 0 {
		delay = 4 * time.Second
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	// cookiejar.New never fails with nil options
	jar, _ := cookiejar.New(nil)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		limiter: ratelimit.NewPacer(delay),
		headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:127.0) Gecko/20100101 Firefox/127.0",
		},
		baseURL:  baseURL,
		logger:   log,
		username: opts.Username,
		password: opts.Password,
	}
}

// SetHeader sets a custom header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Username returns the account username, used as the user_id query parameter
// of the bookmark listing.
func (c *Client) Username() string {
	return c.username
}

// IsAuthenticated reports whether the session has logged in
func (c *Client) IsAuthenticated() bool {
	return c.authenticated
}

// SetAccount replaces the credentials and resets the authenticated state
func (c *Client) SetAccount(username, password string) {
	c.logger.DebugWithFields("updating session account", map[string]interface{}{
		"username": username,
	})
	c.username = username
	c.password = password
	c.authenticated = false
}

// Login establishes the authenticated session. It fetches the login form,
// extracts the one-time authenticity token, and submits the credentials.
// The archive answers 200 on both success and failure; the only success
// signal is the absence of the error marker in the response body.
// Idempotent after the first success.
func (c *Client) Login() error {
	if c.authenticated {
		return nil
	}

	if c.username == "" || c.password == "" {
		return NewLoginError("username and password must be set")
	}

	loginPage, err := c.get(LoginPath, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch login page: %w", err)
	}

	token, err := authenticityToken(loginPage)
	if err != nil {
		return fmt.Errorf("failed to extract login token: %w", err)
	}

	form := url.Values{}
	form.Set("user[login]", c.username)
	form.Set("user[password]", c.password)
	form.Set("authenticity_token", token)

	body, err := c.postForm(LoginPath, form)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}

	if strings.Contains(string(body), loginErrorMarker) {
		return NewLoginError(fmt.Sprintf("failed to log in as %s", c.username))
	}

	c.authenticated = true
	c.logger.InfoWithFields("logged in", map[string]interface{}{
		"username": c.username,
	})

	return nil
}

// Fetch performs an authenticated, paced GET and returns the body on HTTP 200.
// 429/503/504 raise a rate-limit error with no retry; any other non-200
// status raises a failed-request error.
func (c *Client) Fetch(path string, query url.Values) ([]byte, error) {
	if err := c.Login(); err != nil {
		return nil, err
	}

	return c.get(path, query)
}

// get performs one paced GET request without the login precondition
func (c *Client) get(path string, query url.Values) ([]byte, error) {
	fullURL := c.resolveURL(path, query)

	req, err := http.NewRequest(http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, NewFailedRequest(fmt.Sprintf("failed to create request: %v", err), 0)
	}

	return c.doRequest(req, c.httpClient)
}

// postForm submits a form without following redirects; the archive redirects
// on successful login and the redirect target is irrelevant here.
func (c *Client) postForm(path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, c.resolveURL(path, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, NewFailedRequest(fmt.Sprintf("failed to create request: %v", err), 0)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	noRedirect := &http.Client{
		Timeout: c.httpClient.Timeout,
		Jar:     c.httpClient.Jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return c.doRequestAllowingStatus(req, noRedirect)
}

// doRequest performs a paced request and applies the status taxonomy
func (c *Client) doRequest(req *http.Request, client *http.Client) ([]byte, error) {
	resp, body, err := c.roundTrip(req, client)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    req.URL.String(),
		})
		return nil, NewRateLimitError(resp.StatusCode)
	default:
		c.logger.ErrorWithFields("request failed", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    req.URL.String(),
		})
		return nil, NewFailedRequest("failed to fetch page", resp.StatusCode)
	}
}

// doRequestAllowingStatus performs a paced request and returns the body
// regardless of status. The login flow decides success from the body, not
// the status code.
func (c *Client) doRequestAllowingStatus(req *http.Request, client *http.Client) ([]byte, error) {
	_, body, err := c.roundTrip(req, client)
	return body, err
}

// roundTrip paces, sends, and reads one request
func (c *Client) roundTrip(req *http.Request, client *http.Client) (*http.Response, []byte, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	c.limiter.Wait()

	start := time.Now()
	c.logger.DebugWithFields("sending request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := client.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("request error", map[string]interface{}{
			"method": req.Method,
			"url":    req.URL.String(),
			"error":  err.Error(),
		})
		return nil, nil, NewFailedRequest(fmt.Sprintf("network error: %v", err), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, NewFailedRequest(fmt.Sprintf("failed to read response body: %v", err), resp.StatusCode)
	}

	c.logger.DebugWithFields("request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	return resp, body, nil
}

// resolveURL joins a path and query onto the archive host. Absolute URLs
// pass through untouched so download links that point elsewhere still work.
func (c *Client) resolveURL(path string, query url.Values) string {
	full := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		full = c.baseURL + path
	}
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}
