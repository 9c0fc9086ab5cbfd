package exotel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/kotshq/call-insights/internal/domain/call"
	"github.com/kotshq/call-insights/internal/infrastructure/config"
	"github.com/kotshq/call-insights/internal/metrics"
)

// timeLayout is the provider's wire format for DateCreated values, reported
// in the account's local timezone (IST).
const timeLayout = "2006-01-02 15:04:05"

// Client fetches call-detail records from the Exotel REST API.
type Client struct {
	httpc      *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	apiKey     string
	apiToken   string
	baseURL    string // scheme://host, cursor paths are appended verbatim
	accountURL string // {base}/{account_sid}
	pageSize   int
	loc        *time.Location
}

// NewClient builds a fetcher from configuration. The HTTP timeout bounds
// every page request; failures are never retried.
func NewClient(cfg config.ExotelConfig, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing exotel base url: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}

	return &Client{
		httpc:      &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		limiter:    limiter,
		apiKey:     cfg.APIKey,
		apiToken:   cfg.APIToken,
		baseURL:    u.Scheme + "://" + u.Host,
		accountURL: cfg.BaseURL + "/" + cfg.AccountSid,
		pageSize:   cfg.PageSize,
		loc:        loc,
	}, nil
}

// apiCall is the wire shape of one record. Duration arrives as a JSON number
// or quoted string depending on the endpoint version, so it is decoded
// leniently.
type apiCall struct {
	Sid         string      `json:"Sid"`
	From        string      `json:"From"`
	To          string      `json:"To"`
	PhoneNumber string      `json:"PhoneNumber"`
	Direction   string      `json:"Direction"`
	Status      string      `json:"Status"`
	Duration    json.Number `json:"Duration"`
	DateCreated string      `json:"DateCreated"`
}

type apiResponse struct {
	Calls    []apiCall `json:"Calls"`
	Metadata struct {
		NextPageUri *string `json:"NextPageUri"`
	} `json:"Metadata"`
}

// FetchCalls retrieves every call record created between start and end
// (inclusive, whole days) by walking the provider's cursor-based pagination.
// The whole range is materialized eagerly; downstream aggregation needs the
// full set.
//
// Any non-2xx status, timeout or transport failure aborts pagination and the
// accumulated records are returned with Partial set. This is a fail-soft
// boundary: partial results are acceptable and logged, never silently
// discarded, and no request is retried.
func (c *Client) FetchCalls(ctx context.Context, start, end time.Time) (*call.FetchResult, error) {
	filter := fmt.Sprintf("gte:%s;lte:%s",
		start.Format("2006-01-02")+" 00:00:00",
		end.AddDate(0, 0, 1).Format("2006-01-02")+" 23:59:59")

	params := url.Values{}
	params.Set("DateCreated", filter)
	params.Set("PageSize", fmt.Sprintf("%d", c.pageSize))
	params.Set("SortBy", "DateCreated:desc")

	next := c.accountURL + "/Calls.json?" + params.Encode()
	result := &call.FetchResult{}

	c.logger.Info("fetching calls",
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"filter", filter)

	for next != "" {
		page, cursor, err := c.fetchPage(ctx, next)
		if err != nil {
			c.logger.Error("pagination aborted, returning partial results",
				"page", result.Pages+1,
				"accumulated", len(result.Records),
				"error", err)
			metrics.FetchAborts.Inc()
			result.Partial = true
			return result, nil
		}

		result.Pages++
		metrics.FetchPages.Inc()

		if len(page) == 0 {
			break
		}

		for _, raw := range page {
			result.Records = append(result.Records, c.toRecord(raw))
		}
		metrics.FetchRecords.Add(float64(len(page)))

		c.logger.Info("fetched page",
			"page", result.Pages,
			"records", len(page),
			"total", len(result.Records))

		if cursor == nil || *cursor == "" {
			break
		}
		// The cursor path already encodes the filter and page size;
		// follow it verbatim.
		next = c.baseURL + *cursor
	}

	c.logger.Info("fetch complete", "records", len(result.Records), "pages", result.Pages)
	return result, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]apiCall, *string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.SetBasicAuth(c.apiKey, c.apiToken)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, nil, fmt.Errorf("exotel returned %d: %s", resp.StatusCode, string(body))
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("decoding page: %w", err)
	}

	return payload.Calls, payload.Metadata.NextPageUri, nil
}

func (c *Client) toRecord(raw apiCall) call.Record {
	rec := call.Record{
		Sid:         raw.Sid,
		From:        raw.From,
		To:          raw.To,
		PhoneNumber: raw.PhoneNumber,
		Direction:   raw.Direction,
		Status:      raw.Status,
	}

	if d, err := raw.Duration.Int64(); err == nil && d >= 0 {
		rec.Duration = int(d)
	}

	if raw.DateCreated != "" {
		if ts, err := time.ParseInLocation(timeLayout, raw.DateCreated, c.loc); err == nil {
			rec.DateCreated = ts
		} else {
			c.logger.Warn("unparseable DateCreated", "sid", raw.Sid, "value", raw.DateCreated)
		}
	}

	return rec
}
