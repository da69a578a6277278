package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	dberrors "github.com/lepinkainen/dbupload/internal/errors"
	"github.com/lepinkainen/dbupload/internal/ratelimit"
)

// DefaultRequestsPerSecond is the request rate used when none is configured
const DefaultRequestsPerSecond = 5

// DatasetteClient implements the Store interface for remote Datasette instances
// running the datasette-insert plugin. Tables are created by the plugin on first insert.
type DatasetteClient struct {
	baseURL  string
	database string
	apiToken string
	client   *http.Client
	limiter  *ratelimit.Limiter
	base     *url.URL
}

// NewDatasetteClient creates a new DatasetteClient instance.
// requestsPerSecond <= 0 uses DefaultRequestsPerSecond.
func NewDatasetteClient(baseURL, database, apiToken string, requestsPerSecond int) *DatasetteClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	return &DatasetteClient{
		baseURL:  baseURL,
		database: database,
		apiToken: apiToken,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  ratelimit.New("datasette", requestsPerSecond),
	}
}

// Connect verifies the base URL of the Datasette instance
func (c *DatasetteClient) Connect() error {
	if c.base != nil {
		return nil
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return dberrors.NewIOError(c.baseURL, fmt.Errorf("invalid base URL: %w", err))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return dberrors.NewIOError(c.baseURL, fmt.Errorf("base URL must be an absolute http(s) URL"))
	}
	if err := ValidateIdentifier(c.database); err != nil {
		return dberrors.NewIOError(c.baseURL, fmt.Errorf("invalid database name: %w", err))
	}
	c.base = u
	return nil
}

// CreateTable validates the schema; the insert plugin creates the table on first upload,
// so column definitions are not sent to the server.
func (c *DatasetteClient) CreateTable(name string, schema Schema) error {
	if c.base == nil {
		return dberrors.NewNotConnectedError("create_table")
	}
	if err := schema.Validate(name); err != nil {
		return err
	}
	slog.Debug("Remote table will be created on first insert", "table", name, "database", c.database)
	return nil
}

// UploadData sends records to the Datasette insert API in a single request
func (c *DatasetteClient) UploadData(table string, records []Record) (int, error) {
	if c.base == nil {
		return 0, dberrors.NewNotConnectedError("upload_data")
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := ValidateIdentifier(table); err != nil {
		return 0, dberrors.NewUploadError(table, -1, err)
	}
	for i, record := range records {
		if err := validateRecordColumns(record); err != nil {
			return 0, dberrors.NewUploadError(table, i, err)
		}
	}

	// Prepare the request payload
	payload := struct {
		Rows []Record `json:"rows"`
	}{Rows: records}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, dberrors.NewUploadError(table, -1, fmt.Errorf("failed to marshal JSON payload: %w", err))
	}

	u := c.endpoint("-/insert", c.database, table)
	resp, err := c.do(http.MethodPost, u.String(), bytes.NewReader(jsonData))
	if err != nil {
		return 0, dberrors.NewUploadError(table, -1, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, dberrors.NewUploadError(table, -1, c.failure(resp))
	}

	slog.Debug("Uploaded rows to Datasette", "table", table, "rows", len(records))
	return len(records), nil
}

// datasettePage is the _shape=arrays JSON response of a table page
type datasettePage struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	NextURL *string  `json:"next_url"`
}

// QueryData reads the table through the Datasette JSON API, following pagination
func (c *DatasetteClient) QueryData(table string, where Record) ([]Record, error) {
	if c.base == nil {
		return nil, dberrors.NewNotConnectedError("query_data")
	}
	if err := ValidateIdentifier(table); err != nil {
		return nil, dberrors.NewQueryError(table, "invalid table name", err)
	}

	u := c.endpoint(c.database, table+".json")
	q := u.Query()
	q.Set("_shape", "arrays")
	q.Set("_size", "max")
	for _, f := range where.Fields() {
		if err := ValidateIdentifier(f.Column); err != nil {
			return nil, dberrors.NewQueryError(table, "invalid filter column", err)
		}
		switch f.Value.Kind() {
		case KindNull:
			q.Set(f.Column+"__isnull", "1")
		case KindBlob:
			return nil, dberrors.NewQueryError(table, fmt.Sprintf("cannot filter on blob column %q", f.Column), nil)
		default:
			q.Set(f.Column+"__exact", f.Value.String())
		}
	}
	u.RawQuery = q.Encode()

	records := []Record{}
	next := u.String()
	for next != "" {
		page, err := c.fetchPage(table, next)
		if err != nil {
			return nil, err
		}
		for _, row := range page.Rows {
			if len(row) != len(page.Columns) {
				return nil, dberrors.NewQueryError(table, "malformed response row", nil)
			}
			record := NewRecord()
			for i, col := range page.Columns {
				v, err := valueFromJSON(row[i])
				if err != nil {
					return nil, dberrors.NewQueryError(table, fmt.Sprintf("column %q", col), err)
				}
				record.Set(col, v)
			}
			records = append(records, record)
		}
		next = ""
		if page.NextURL != nil {
			next = *page.NextURL
		}
	}
	return records, nil
}

func (c *DatasetteClient) fetchPage(table, pageURL string) (*datasettePage, error) {
	resp, err := c.do(http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, dberrors.NewQueryError(table, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, dberrors.NewQueryError(table, "", dberrors.ErrNoSuchTable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, dberrors.NewQueryError(table, "", c.failure(resp))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var page datasettePage
	if err := dec.Decode(&page); err != nil {
		return nil, dberrors.NewQueryError(table, "failed to decode response", err)
	}
	return &page, nil
}

// Close releases the client. It holds no connection, so it only resets state.
func (c *DatasetteClient) Close() error {
	c.base = nil
	return nil
}

func (c *DatasetteClient) endpoint(elem ...string) *url.URL {
	u := *c.base
	u.Path = path.Join(append([]string{u.Path}, elem...)...)
	u.RawQuery = ""
	return &u
}

func (c *DatasetteClient) do(method, target string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// failure converts a failed response and holds back further requests when the server asks to
func (c *DatasetteClient) failure(resp *http.Response) error {
	err := responseError(resp)
	var rateErr *dberrors.RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		slog.Warn("Datasette rate limit hit, pausing requests", "retry_after", rateErr.RetryAfter)
		c.limiter.Pause(rateErr.RetryAfter)
	}
	return err
}

// responseError converts a failed response into a RateLimitError or RemoteError
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	apiMessage := string(body)
	var errResp struct {
		Error  string   `json:"error"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Error != "":
			apiMessage = errResp.Error
		case len(errResp.Errors) > 0:
			apiMessage = errResp.Errors[0]
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			return dberrors.NewRateLimitErrorWithRetry("datasette rate limit exceeded", time.Duration(secs)*time.Second)
		}
		return dberrors.NewRateLimitError("datasette rate limit exceeded")
	}
	return dberrors.NewRemoteError(resp.StatusCode, apiMessage)
}
