// Package pagespeed queries the PageSpeed Insights API for a deployed site.
package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// DefaultEndpoint is the public v5 API.
const DefaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Strategies accepted by the API.
const (
	StrategyMobile  = "mobile"
	StrategyDesktop = "desktop"
)

// auditIDs are the lab metrics shown in the summary, in display order.
var auditIDs = []string{
	"first-contentful-paint",
	"largest-contentful-paint",
	"total-blocking-time",
	"cumulative-layout-shift",
	"speed-index",
	"interactive",
}

// Request describes one analysis.
type Request struct {
	URL      string
	Strategy string
	Key      string
}

// Metric is one audited measurement.
type Metric struct {
	ID    string
	Title string
	Value string
	Score float64
}

// Report summarizes an analysis.
type Report struct {
	URL       string
	Strategy  string
	Score     int
	Metrics   []Metric
	FetchedAt time.Time
}

// Client talks to the PageSpeed Insights API.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for endpoint; empty means DefaultEndpoint.
func NewClient(endpoint string, hc *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if hc == nil {
		hc = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{endpoint: endpoint, http: hc}
}

type apiResponse struct {
	ID                   string `json:"id"`
	AnalysisUTCTimestamp string `json:"analysisUTCTimestamp"`
	LighthouseResult     struct {
		FinalURL   string `json:"finalUrl"`
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
		Audits map[string]struct {
			Title        string   `json:"title"`
			DisplayValue string   `json:"displayValue"`
			Score        *float64 `json:"score"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Run performs the analysis.
func (c *Client) Run(ctx context.Context, req Request) (*Report, error) {
	if req.URL == "" {
		return nil, ferrors.ConfigError("pagespeed.url is not configured").Build()
	}
	strategy := strings.ToLower(req.Strategy)
	if strategy == "" {
		strategy = StrategyMobile
	}
	if strategy != StrategyMobile && strategy != StrategyDesktop {
		return nil, ferrors.ValidationError(fmt.Sprintf("unknown pagespeed strategy %q", req.Strategy)).
			WithContext("strategy", req.Strategy).Build()
	}

	q := url.Values{}
	q.Set("url", req.URL)
	q.Set("strategy", strategy)
	q.Set("category", "performance")
	if req.Key != "" {
		q.Set("key", req.Key)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pagespeed request: %w", err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "pagespeed request failed").
			WithContext("url", req.URL).Build()
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("pagespeed read: %w", err)
	}
	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "pagespeed returned malformed JSON").
			WithContext("status", resp.StatusCode).Build()
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return nil, ferrors.RuntimeError("pagespeed analysis failed: "+msg).
			WithContext("status", resp.StatusCode).
			WithContext("url", req.URL).Build()
	}
	return toReport(req.URL, strategy, &parsed), nil
}

func toReport(target, strategy string, r *apiResponse) *Report {
	rep := &Report{URL: target, Strategy: strategy}
	if r.LighthouseResult.FinalURL != "" {
		rep.URL = r.LighthouseResult.FinalURL
	}
	if ts, err := time.Parse(time.RFC3339, r.AnalysisUTCTimestamp); err == nil {
		rep.FetchedAt = ts
	}
	if perf, ok := r.LighthouseResult.Categories["performance"]; ok && perf.Score != nil {
		rep.Score = int(*perf.Score*100 + 0.5)
	}
	for _, id := range auditIDs {
		a, ok := r.LighthouseResult.Audits[id]
		if !ok {
			continue
		}
		m := Metric{ID: id, Title: a.Title, Value: a.DisplayValue}
		if a.Score != nil {
			m.Score = *a.Score
		}
		rep.Metrics = append(rep.Metrics, m)
	}
	return rep
}

// Format renders the report the way the CLI prints it.
func (r *Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL:      %s\n", r.URL)
	fmt.Fprintf(&b, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(&b, "Speed:    %d\n", r.Score)
	if len(r.Metrics) == 0 {
		return b.String()
	}
	width := 0
	for _, m := range r.Metrics {
		width = max(width, len(m.Title))
	}
	b.WriteString("\n")
	for _, m := range r.Metrics {
		fmt.Fprintf(&b, "%-*s  %s\n", width, m.Title, m.Value)
	}
	return b.String()
}
