// Package store implements the HTTP client for the remote photo record
// store: batch queries over a drive, single header reads, and header
// mutations.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
	"github.com/homebase-id/photo-library-backend/internal/domain/timeline"
)

const (
	// DefaultTimeout for HTTP requests against the record store.
	DefaultTimeout = 30 * time.Second

	apiPrefix = "/api/owner/v1"
)

// Client talks to the remote record store over HTTP JSON.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option is a functional option for configuring the store client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a new record store client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// QueryPage runs one cursor-bounded batch query. Results come back newest
// first unless the query asks for the reverse.
func (c *Client) QueryPage(ctx context.Context, q timeline.Query) (timeline.QueryResult, error) {
	ordering := "newestFirst"
	if q.OldestFirst {
		ordering = "oldestFirst"
	}

	reqBody := queryBatchRequest{
		QueryParams: queryParams{
			TargetDrive:    targetDrive{Alias: q.Drive.Alias, Type: q.Drive.Type},
			FileType:       []int{photo.MediaFileType},
			ArchivalStatus: archivalInts(q.Filter.ArchivalStates()),
			TagsMatchAll:   q.Filter.Tags(),
		},
		ResultOptions: resultOptions{
			CursorState:           q.Cursor,
			MaxRecords:            q.PageSize,
			IncludeMetadataHeader: false,
			Sorting:               "userDate",
			Ordering:              ordering,
		},
	}

	log.Debug().
		Str("drive", q.Drive.Alias).
		Str("filter", q.Filter.String()).
		Int("pageSize", q.PageSize).
		Msg("Querying record store batch")

	var resp queryBatchResponse
	if err := c.postJSON(ctx, apiPrefix+"/drive/query/batch", reqBody, &resp); err != nil {
		return timeline.QueryResult{}, err
	}

	records := make([]photo.Record, len(resp.SearchResults))
	for i, sr := range resp.SearchResults {
		records[i] = toRecord(sr)
	}
	return timeline.QueryResult{Records: records, NextCursor: resp.CursorState}, nil
}

// GetRecord fetches one file header. Unknown ids map to photo.ErrNotFound.
func (c *Client) GetRecord(ctx context.Context, drive photo.Drive, fileID string) (photo.Record, error) {
	sr, err := c.getHeader(ctx, drive, fileID)
	if err != nil {
		return photo.Record{}, err
	}
	return toRecord(sr), nil
}

// UpdateRecord applies a header patch to one file and returns the updated
// record. The remote update replaces the whole header, so the current one is
// read first.
func (c *Client) UpdateRecord(ctx context.Context, drive photo.Drive, fileID string, patch timeline.Patch) (photo.Record, error) {
	sr, err := c.getHeader(ctx, drive, fileID)
	if err != nil {
		return photo.Record{}, err
	}

	app := &sr.FileMetadata.AppData
	if patch.ArchivalState != nil {
		app.ArchivalStatus = int(*patch.ArchivalState)
	}
	for _, tag := range patch.AddTags {
		if !containsTag(app.Tags, tag) {
			app.Tags = append(app.Tags, tag)
		}
	}
	for _, tag := range patch.RemoveTags {
		app.Tags = removeTag(app.Tags, tag)
	}

	update := updateHeaderRequest{
		TargetDrive:  targetDrive{Alias: drive.Alias, Type: drive.Type},
		FileID:       fileID,
		FileMetadata: sr.FileMetadata,
	}

	log.Debug().
		Str("drive", drive.Alias).
		Str("fileId", fileID).
		Msg("Updating record store header")

	if err := c.postJSON(ctx, apiPrefix+"/drive/files/update", update, nil); err != nil {
		return photo.Record{}, err
	}
	return toRecord(sr), nil
}

// ListRecords feeds the library index builder: it drains batch pages until
// limit records are collected or the drive runs out.
func (c *Client) ListRecords(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, limit int) ([]photo.Record, error) {
	var records []photo.Record
	cursor := ""
	for len(records) < limit {
		pageSize := limit - len(records)
		if pageSize > timeline.PageSize {
			pageSize = timeline.PageSize
		}
		res, err := c.QueryPage(ctx, timeline.Query{
			Drive:    drive,
			Filter:   filter,
			Cursor:   cursor,
			PageSize: pageSize,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, res.Records...)
		if len(res.Records) < pageSize || res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	return records, nil
}

func (c *Client) getHeader(ctx context.Context, drive photo.Drive, fileID string) (searchResult, error) {
	reqURL := fmt.Sprintf("%s%s/drive/files/header?alias=%s&type=%s&fileId=%s",
		c.baseURL, apiPrefix,
		url.QueryEscape(drive.Alias), url.QueryEscape(drive.Type), url.QueryEscape(fileID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return searchResult{}, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return searchResult{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return searchResult{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return searchResult{}, fmt.Errorf("read response: %w", err)
	}

	var sr searchResult
	if err := json.Unmarshal(body, &sr); err != nil {
		return searchResult{}, fmt.Errorf("parse response: %w", err)
	}
	if sr.FileID == "" {
		sr.FileID = fileID
	}
	return sr, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func checkStatus(status int) error {
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return photo.ErrNotFound
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		log.Warn().Int("status", status).Msg("Record store temporary error")
		return photo.ErrTemporaryFailure
	default:
		return fmt.Errorf("unexpected status: %d", status)
	}
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func removeTag(tags []string, tag string) []string {
	kept := tags[:0]
	for _, t := range tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	return kept
}
