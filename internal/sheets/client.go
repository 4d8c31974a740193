// Package sheets is the remote tabular client: it reads and writes supply
// rows in a spreadsheet document over the values HTTP API.
//
// The client addresses rows by position only. A row written with UpdateRow
// goes to the row number recorded on the item, whatever currently lives
// there.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/doctorheli/checklist/internal/rowcodec"
	"github.com/doctorheli/checklist/internal/supply"
)

// DefaultBaseURL is the public spreadsheet values endpoint.
const DefaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// FetchRange covers the header-less data area: up to 999 data rows, columns A to H.
const FetchRange = "A2:H1000"

// Config holds the connection settings for a Client.
type Config struct {
	// BaseURL of the values API. Defaults to DefaultBaseURL.
	BaseURL string

	// DocumentID and AccessKey may be empty; the client is then
	// unconfigured until Configure is called.
	DocumentID string
	AccessKey  string

	// HTTPClient defaults to a client with no timeout.
	HTTPClient *http.Client

	Logger *log.Logger
}

// Client talks to one spreadsheet document.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger

	mu         sync.RWMutex
	documentID string
	accessKey  string
	lastSync   time.Time
}

// New creates a client. It performs no network access.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[sheets] ", log.LstdFlags)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       cfg.HTTPClient,
		logger:     cfg.Logger,
		documentID: cfg.DocumentID,
		accessKey:  cfg.AccessKey,
	}
}

// Configure sets the document and key. It takes effect for the next request
// and does not contact the remote.
func (c *Client) Configure(documentID, accessKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documentID = strings.TrimSpace(documentID)
	c.accessKey = strings.TrimSpace(accessKey)
}

// IsConfigured reports whether both a document id and an access key are set.
func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.documentID != "" && c.accessKey != ""
}

// DocumentID returns the configured document id.
func (c *Client) DocumentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.documentID
}

// LastSync returns when the last fetch or write succeeded. It is the zero
// time if none has.
func (c *Client) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}

type valuesBody struct {
	Values [][]string `json:"values"`
}

type appendResponse struct {
	Updates struct {
		UpdatedRange string `json:"updatedRange"`
	} `json:"updates"`
}

// FetchAll reads the data range and decodes every row. Rows with too few
// cells are skipped. An absent values field yields an empty collection.
func (c *Client) FetchAll(ctx context.Context) ([]supply.Item, error) {
	endpoint, err := c.endpoint(FetchRange, "")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %w", supply.ErrTransport, err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp valuesBody
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty response body", supply.ErrResponse)
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode values: %w", supply.ErrResponse, err)
	}

	items := make([]supply.Item, 0, len(resp.Values))
	skipped := 0
	for pos, cells := range resp.Values {
		item, ok := rowcodec.Decode(cells, pos)
		if !ok {
			skipped++
			continue
		}
		items = append(items, item)
	}
	if skipped > 0 {
		c.logger.Printf("Skipped %d incomplete rows", skipped)
	}

	c.touch()
	return items, nil
}

// UpdateRow overwrites columns A to H of the item's bound row.
func (c *Client) UpdateRow(ctx context.Context, item supply.Item) error {
	if item.RowIndex == nil {
		return fmt.Errorf("%w: item %s", supply.ErrMissingRowBinding, item.ID)
	}
	row := *item.RowIndex
	rng := fmt.Sprintf("A%d:H%d", row, row)

	endpoint, err := c.endpoint(rng, "valueInputOption=RAW")
	if err != nil {
		return err
	}

	payload, err := json.Marshal(valuesBody{Values: [][]string{rowcodec.Encode(item)}})
	if err != nil {
		return fmt.Errorf("%w: failed to encode row: %w", supply.ErrResponse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %w", supply.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req); err != nil {
		return err
	}

	c.touch()
	return nil
}

// AppendRow adds the item as a new row after the last data row and returns
// the 1-based row number the remote reports it was written to.
func (c *Client) AppendRow(ctx context.Context, item supply.Item) (int, error) {
	endpoint, err := c.endpoint("A:H:append", "valueInputOption=RAW&insertDataOption=INSERT_ROWS")
	if err != nil {
		return 0, err
	}

	payload, err := json.Marshal(valuesBody{Values: [][]string{rowcodec.Encode(item)}})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to encode row: %w", supply.ErrResponse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to build request: %w", supply.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return 0, err
	}

	var resp appendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: failed to decode append response: %w", supply.ErrResponse, err)
	}
	row, err := ParseRangeRow(resp.Updates.UpdatedRange)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", supply.ErrResponse, err)
	}

	c.touch()
	return row, nil
}

// ParseRangeRow extracts the first row number from an A1 range such as
// "Sheet1!A5:H5".
func ParseRangeRow(rng string) (int, error) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	digits := strings.TrimLeft(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 {
		return 0, fmt.Errorf("no row number in range %q", rng)
	}
	return row, nil
}

// endpoint builds {base}/{doc}/values/{range}?{params}&key={key}.
func (c *Client) endpoint(rng, params string) (string, error) {
	c.mu.RLock()
	doc, key := c.documentID, c.accessKey
	c.mu.RUnlock()

	if doc == "" || key == "" {
		return "", fmt.Errorf("%w: document id and access key must be set", supply.ErrConfiguration)
	}

	query := "key=" + url.QueryEscape(key)
	if params != "" {
		query = params + "&" + query
	}
	return fmt.Sprintf("%s/%s/values/%s?%s", c.baseURL, url.PathEscape(doc), rng, query), nil
}

// do sends the request and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%w: %s %s: %w", supply.ErrTransport, req.Method, redact(req.URL), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", supply.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s returned status %d", supply.ErrResponse, req.Method, redact(req.URL), resp.StatusCode)
	}
	return body, nil
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastSync = time.Now()
	c.mu.Unlock()
}

// redact drops the query string so access keys stay out of logs and errors.
func redact(u *url.URL) string {
	cp := *u
	cp.RawQuery = ""
	return cp.String()
}
