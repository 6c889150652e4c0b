// Package giphy is the GIF search client behind the pool cache.
package giphy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/pkg/logger"
	"github.com/okian/gifduel/pkg/metrics"
)

const (
	// DefaultBaseURL is the public search API root.
	DefaultBaseURL = "https://api.giphy.com"

	// DefaultTimeout bounds a single search request.
	DefaultTimeout = 8 * time.Second

	// UntitledTitle replaces a missing or blank result title.
	UntitledTitle = "Untitled GIF"

	searchPath = "/v1/gifs/search"

	// maxErrorBody caps how much of a failed response is read for its message.
	maxErrorBody = 4 << 10
)

// Query is one search request.
type Query struct {
	Text     string
	Limit    int
	Rating   model.Rating
	Language string
}

// Client searches the GIF API. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	newID      func() string
	logger     logger.Logger
}

// NewClient creates a client for apiKey. An empty key is accepted; every
// search then fails with model.ErrMissingCredential.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		newID:      uuid.NewString,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Data []result `json:"data"`
	Meta struct {
		Status int    `json:"status"`
		Msg    string `json:"msg"`
	} `json:"meta"`
	Message string `json:"message"`
}

type result struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Images struct {
		FixedWidth image `json:"fixed_width"`
		Downsized  image `json:"downsized"`
		Original   image `json:"original"`
	} `json:"images"`
}

type image struct {
	URL string `json:"url"`
}

// Search runs one query and returns its normalized results in upstream order.
// Results without a usable image keep an empty DisplayURL; filtering is left
// to the caller.
func (c *Client) Search(ctx context.Context, q Query) ([]model.Item, error) {
	if c.apiKey == "" {
		return nil, model.ErrMissingCredential
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search %q: wait for rate limiter: %w: %w", q.Text, model.ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", stripURL(err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordUpstreamLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("search %q: %w: %w", q.Text, model.ErrUpstream, stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		upErr := &model.UpstreamError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
		c.logger.Warn(ctx, "search rejected",
			logger.String("query", q.Text),
			logger.Int("status", resp.StatusCode),
		)
		return nil, upErr
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w: %w", model.ErrUpstream, err)
	}

	items := make([]model.Item, 0, len(sr.Data))
	for _, r := range sr.Data {
		items = append(items, c.normalize(r))
	}
	c.logger.Debug(ctx, "search complete",
		logger.String("query", q.Text),
		logger.Int("results", len(items)),
	)
	return items, nil
}

// stripURL drops the request URL from a *url.Error. The URL carries the API
// key and must not reach error strings or logs.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

func (c *Client) searchURL(q Query) string {
	v := url.Values{}
	v.Set("api_key", c.apiKey)
	v.Set("q", q.Text)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Rating != "" {
		v.Set("rating", string(q.Rating))
	}
	if q.Language != "" {
		v.Set("lang", q.Language)
	}
	return strings.TrimRight(c.baseURL, "/") + searchPath + "?" + v.Encode()
}

func (c *Client) normalize(r result) model.Item {
	it := model.Item{
		ID:    r.ID,
		Title: strings.TrimSpace(r.Title),
	}
	if it.ID == "" {
		it.ID = c.newID()
	}
	if it.Title == "" {
		it.Title = UntitledTitle
	}
	for _, u := range []string{r.Images.FixedWidth.URL, r.Images.Downsized.URL, r.Images.Original.URL} {
		if u != "" {
			it.DisplayURL = u
			break
		}
	}
	return it
}

// errorMessage extracts a message from an error body, if it has one.
func errorMessage(body []byte) string {
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err == nil {
		if sr.Message != "" {
			return sr.Message
		}
		if sr.Meta.Msg != "" {
			return sr.Meta.Msg
		}
		return ""
	}
	return strings.TrimSpace(string(body))
}

// Fetcher adapts a Client to pool.Fetcher with a fixed limit and language.
type Fetcher struct {
	client   *Client
	limit    int
	language string
}

// NewFetcher binds limit and language to client searches.
func NewFetcher(client *Client, limit int, language string) *Fetcher {
	return &Fetcher{client: client, limit: limit, language: language}
}

// Fetch implements pool.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, theme string, rating model.Rating) ([]model.Item, error) {
	return f.client.Search(ctx, Query{
		Text:     theme,
		Limit:    f.limit,
		Rating:   rating,
		Language: f.language,
	})
}
