// Package gem fetches the live tender listing from the Government
// e-Marketplace services feed.
package gem

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/salesagent/salesagent/internal/model"
)

const (
	defaultFeedURL = "https://mkp.gem.gov.in/cms/others/api/services/list.json?search%5Bstatus_in%5D%5B%5D=active&_ln=en"
	userAgent      = "salesagent/1.0"

	// Only gzip is advertised; it is the only encoding decoded below.
	acceptEncoding = "gzip"
)

type Client struct {
	logger     *zap.Logger
	limiter    *rate.Limiter
	HTTPClient *http.Client
	FeedURL    string
	UserAgent  string
}

// New creates a feed client with a conservative rate limit; the listing
// endpoint is public and unauthenticated.
func New(logger *zap.Logger) *Client {
	return &Client{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(1), 2),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		FeedURL:   defaultFeedURL,
		UserAgent: userAgent,
	}
}

// FetchTenders downloads the current services listing and returns it as a
// tender collection. The feed's `services` array carries the tender shape
// the matching engine consumes.
func (c *Client) FetchTenders(ctx context.Context) (*model.TenderCollection, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("feed rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	c.logger.Debug("fetching tender feed", zap.String("url", c.FeedURL))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tender feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tender feed: bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	var collection model.TenderCollection
	if err := json.NewDecoder(reader).Decode(&collection); err != nil {
		return nil, fmt.Errorf("decode tender feed: %w", err)
	}

	if collection.Source == "" {
		collection.Source = "GeM"
	}
	if collection.TotalCount == 0 {
		collection.TotalCount = len(collection.Services)
	}

	c.logger.Info("fetched tender feed", zap.Int("tenders", collection.Len()))

	return &collection, nil
}
