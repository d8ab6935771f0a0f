package client

import (
	"context"
	"net/url"
	"strconv"
)

// CrawlService handles crawl runs and their snapshots.
type CrawlService struct {
	c *Client
}

// Start runs a crawl and waits for it to finish.
func (s *CrawlService) Start(ctx context.Context, req CrawlRequest) (*CrawlRun, error) {
	var run CrawlRun
	if err := s.c.post(ctx, "/api/v1/crawls", nil, req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Submit queues a crawl and returns immediately with the queued run.
func (s *CrawlService) Submit(ctx context.Context, req CrawlRequest) (*CrawlRun, error) {
	var run CrawlRun
	params := url.Values{"async": {"true"}}
	if err := s.c.post(ctx, "/api/v1/crawls", params, req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Get returns a run by id, including runs still queued or running.
func (s *CrawlService) Get(ctx context.Context, id string) (*CrawlRun, error) {
	var run CrawlRun
	if err := s.c.get(ctx, "/api/v1/crawls/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the most recent saved runs.
func (s *CrawlService) List(ctx context.Context, limit int) ([]CrawlRun, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Runs []CrawlRun `json:"runs"`
	}
	if err := s.c.get(ctx, "/api/v1/crawls", params, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Delete removes a saved run and its snapshot.
func (s *CrawlService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, "/api/v1/crawls/"+url.PathEscape(id))
}

// Graph returns the stored snapshot of a run.
func (s *CrawlService) Graph(ctx context.Context, id string) (*GraphExport, error) {
	var resp GraphExport
	if err := s.c.get(ctx, "/api/v1/crawls/"+url.PathEscape(id)+"/graph", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Analytics computes degree, PageRank and betweenness for a stored run.
func (s *CrawlService) Analytics(ctx context.Context, id string, opts AnalyticsOptions) (*Report, error) {
	params := url.Values{}
	if opts.Normalized {
		params.Set("normalized", "true")
	}
	if opts.Top != 0 {
		params.Set("top", strconv.Itoa(opts.Top))
	}
	if opts.Damping != 0 {
		params.Set("damping", strconv.FormatFloat(opts.Damping, 'f', -1, 64))
	}
	var resp Report
	if err := s.c.get(ctx, "/api/v1/crawls/"+url.PathEscape(id)+"/analytics", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
