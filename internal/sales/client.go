package sales

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

const DefaultBaseURL = "https://labdados.com/produtos"

// Source returns the sale records matching a region/year query.
type Source interface {
	Fetch(ctx context.Context, q models.Query) ([]models.Sale, error)
}

// Client reads sale records from the remote data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// QueryValues builds the API parameters. Both are always present, empty
// meaning "all".
func QueryValues(q models.Query) url.Values {
	v := url.Values{}
	v.Set("regiao", strings.ToLower(q.Region))
	if q.Year == 0 {
		v.Set("ano", "")
	} else {
		v.Set("ano", strconv.Itoa(q.Year))
	}
	return v
}

func (c *Client) Fetch(ctx context.Context, q models.Query) ([]models.Sale, error) {
	ctx, span := observability.StartSpan(ctx, "sales.fetch")
	defer span.Finish()
	span.SetTag("region", q.Region)
	span.SetTag("year", strconv.Itoa(q.Year))

	u, err := url.Parse(c.baseURL)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	u.RawQuery = QueryValues(q).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("fetch sales: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("fetch sales: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		span.SetError(err)
		return nil, err
	}

	records, err := DecodeSales(resp.Body)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	c.logger.Debug("sales fetched",
		"url", u.String(),
		"records", len(records),
		"duration", time.Since(start),
		"request_id", observability.GetRequestID(ctx),
	)
	return records, nil
}
