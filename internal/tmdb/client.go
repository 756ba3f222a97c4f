// Package tmdb fetches movie and show metadata from The Movie Database.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/ademuri/watch-log-tools/internal/logging"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"
	ImageBaseURL   = "https://image.tmdb.org/t/p/w500"
)

var ErrNoAPIKey = errors.New("tmdb: no API key configured")

// StatusError is a non-200 response.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: %s returned %d %s", e.Path, e.Code, http.StatusText(e.Code))
}

// Temporary reports whether the request may succeed if retried.
func (e *StatusError) Temporary() bool {
	return e.Code/100 == 5 || e.Code == http.StatusTooManyRequests
}

// NotFound reports whether err is a 404 from the API.
func NotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
	attempts   uint
	retryDelay time.Duration
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

func WithRetry(attempts uint, delay time.Duration) Option {
	if attempts == 0 {
		attempts = 1
	}
	return func(c *Client) {
		c.attempts = attempts
		c.retryDelay = delay
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
		attempts:   5,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a multi search and keeps only movies and shows.
func (c *Client) Search(ctx context.Context, query string, page int) (SearchPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchPage{}, nil
	}
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")

	var res SearchPage
	if err := c.get(ctx, "/search/multi", params, &res); err != nil {
		return SearchPage{}, err
	}

	kept := res.Results[:0]
	for _, r := range res.Results {
		if r.MediaType == MediaMovie || r.MediaType == MediaTV {
			kept = append(kept, r)
		}
	}
	res.Results = kept
	return res, nil
}

func (c *Client) Movie(ctx context.Context, id string) (Movie, error) {
	var m Movie
	err := c.get(ctx, "/movie/"+url.PathEscape(id), nil, &m)
	return m, err
}

func (c *Client) Show(ctx context.Context, id string) (Show, error) {
	var s Show
	err := c.get(ctx, "/tv/"+url.PathEscape(id), nil, &s)
	return s, err
}

func (c *Client) Season(ctx context.Context, showID string, season int) (Season, error) {
	var s Season
	err := c.get(ctx, fmt.Sprintf("/tv/%s/season/%d", url.PathEscape(showID), season), nil, &s)
	return s, err
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	key := path
	if len(params) > 0 {
		key += "?" + params.Encode()
	}

	if c.cache != nil {
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("tmdb cache read failed")
		} else if ok {
			if err := json.Unmarshal(data, out); err == nil {
				return nil
			}
		}
	}

	var body []byte
	err := retry.Do(
		func() error {
			var err error
			body, err = c.fetch(ctx, path, params)
			return err
		},
		retry.RetryIf(func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) && se.Temporary() {
				logging.Warn().Err(err).Msg("tmdb errored, retrying")
				return true
			}
			return false
		}),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tmdb: decoding %s: %w", path, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("tmdb cache write failed")
		}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "watch-log-tools/1.0")

	logging.Debug().Str("path", path).Msg("tmdb request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Path: path}
	}
	return io.ReadAll(resp.Body)
}

// PosterURL expands a poster path to a full image URL.
func PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return ImageBaseURL + path
}
