// Package remote fetches catalog pages over HTTP.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/vadimfor/showdeck/internal/locale"
)

// DefaultBaseURL is the catalog site.
const DefaultBaseURL = "https://www.imdb.com"

// Pages larger than this are truncated.
const maxBodyBytes = 16 << 20

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int // retries after the first attempt
	RetryDelay time.Duration
	UserAgents []string
	Logger     *log.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		BaseURL:    DefaultBaseURL,
		Timeout:    20 * time.Second,
		Retries:    2,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Client fetches pages with a browser User-Agent and bounded retries.
type Client struct {
	http    *http.Client
	baseURL string
	opts    Options
	logger  *log.Logger
}

// New creates a client. Zero-valued options take their defaults.
func New(opts Options) *Client {
	def := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}

	return &Client{
		http: &http.Client{
			Transport: newTransport(opts.UserAgents),
			Timeout:   opts.Timeout,
		},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		opts:    opts,
		logger:  opts.Logger,
	}
}

// ChartURL returns the address of the popular-series chart.
func (c *Client) ChartURL(lang locale.Lang) string {
	return c.baseURL + "/chart/tvmeter/?language=" + url.QueryEscape(lang.Tag())
}

// FindURL returns the address of the search page for query.
func (c *Client) FindURL(query string) string {
	return c.baseURL + "/find/?q=" + url.QueryEscape(query) + "&ref_=fn_nv_srb_sm"
}

// TitleURL returns the address of a title's detail page.
func (c *Client) TitleURL(id string) string {
	return c.baseURL + "/title/" + url.PathEscape(id) + "/"
}

// Fetch downloads the page at rawURL with the Accept-Language of lang.
// Network errors and 5xx responses are retried; other failures return at once.
func (c *Client) Fetch(ctx context.Context, rawURL string, lang locale.Lang) (string, error) {
	var body string
	err := retry.Do(
		func() error {
			b, err := c.fetchOnce(ctx, rawURL, lang)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.opts.Retries)+1),
		retry.Delay(c.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Printf("Retrying %s after attempt %d: %v", rawURL, n+1, err)
		}),
	)
	if err != nil {
		return "", err
	}
	return body, nil
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string, lang locale.Lang) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", lang.AcceptLanguage())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("x-amzn-waf-action") != "" {
		return "", &BlockedError{URL: rawURL, Reason: "waf-challenge"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	if resp.StatusCode == http.StatusAccepted && len(data) == 0 {
		return "", &BlockedError{URL: rawURL, Reason: "empty 202"}
	}
	return string(data), nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return false
	}
	var status *HTTPStatusError
	if errors.As(err, &status) {
		return status.Retryable()
	}
	return true
}
