// Package smhi downloads the latest-months observation series of the SMHI
// open data service as semicolon separated files.
package smhi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cloudpico-metobs/internal/modules/weather/types"
)

const userAgent = "cloudpico-metobs"

// FetchResult is the outcome of one parameter download. Path is empty when Err is set.
type FetchResult struct {
	Parameter types.Parameter
	Path      string
	Err       error
}

// Client performs sequential, blocking downloads without retries.
type Client struct {
	urlTemplate string
	outputDir   string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient builds a client for urlTemplate, which must contain the {parameter}
// and {station} placeholders. A nil httpClient means http.DefaultClient.
func NewClient(urlTemplate, outputDir string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		urlTemplate: urlTemplate,
		outputDir:   outputDir,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// URL is the data endpoint of one station and parameter.
func (c *Client) URL(stationID, code int) string {
	return strings.NewReplacer(
		"{parameter}", strconv.Itoa(code),
		"{station}", strconv.Itoa(stationID),
	).Replace(c.urlTemplate)
}

// FetchAll downloads every parameter in order and reports one result each.
// It never stops early; deciding what a failure means is up to the caller.
func (c *Client) FetchAll(ctx context.Context, stationID int, params []types.Parameter) []FetchResult {
	results := make([]FetchResult, 0, len(params))
	for _, p := range params {
		path, err := c.Fetch(ctx, stationID, p.Code)
		if err != nil {
			c.logger.Warn("couldn't download data",
				"station_id", stationID,
				"parameter", p.Code,
				"error", err,
			)
		}
		results = append(results, FetchResult{Parameter: p, Path: path, Err: err})
	}
	return results
}

// Fetch writes the full response body to the raw file of (stationID, code).
// On failure any previous file of that name is removed, so a stale download
// is never merged.
func (c *Client) Fetch(ctx context.Context, stationID, code int) (string, error) {
	target := filepath.Join(c.outputDir, types.RawFileName(stationID, code))
	if err := c.download(ctx, c.URL(stationID, code), target); err != nil {
		if rmErr := os.Remove(target); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			c.logger.Warn("remove stale download", "path", target, "error", rmErr)
		}
		return "", fmt.Errorf("%w: parameter %d station %d: %w", types.ErrDownload, code, stationID, err)
	}
	c.logger.Info("downloaded", "station_id", stationID, "parameter", code, "path", target)
	return target, nil
}

func (c *Client) download(ctx context.Context, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(target), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		return errors.Join(copyErr, closeErr)
	}
	if n == 0 {
		_ = os.Remove(tmpName)
		return errors.New("empty response body")
	}
	return os.Rename(tmpName, target)
}
