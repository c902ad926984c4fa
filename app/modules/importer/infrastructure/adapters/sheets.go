// Package importeradapters holds the outbound source adapters: shared-sheet
// download and photo OCR extraction.
package importeradapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// maxSheetBytes caps a fetched sheet at 20 MiB.
const maxSheetBytes = 20 << 20

// HTTPSheetFetcher downloads a shared online sheet as CSV. Google Sheets
// share links are rewritten to their CSV export form; any other URL is
// fetched as-is and expected to serve CSV.
type HTTPSheetFetcher struct {
	client *http.Client
}

// NewSheetFetcher builds a fetcher. A non-nil token source authenticates
// requests for sheets that are not public.
func NewSheetFetcher(ctx context.Context, ts oauth2.TokenSource) *HTTPSheetFetcher {
	client := &http.Client{Timeout: 30 * time.Second}
	if ts != nil {
		client = oauth2.NewClient(ctx, ts)
		client.Timeout = 30 * time.Second
	}
	return &HTTPSheetFetcher{client: client}
}

var googleSheetPath = regexp.MustCompile(`^/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// FetchCSV downloads the sheet behind sheetURL.
func (f *HTTPSheetFetcher) FetchCSV(ctx context.Context, sheetURL string) ([]byte, error) {
	target, err := exportURL(sheetURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid sheet URL: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet body: %w", err)
	}
	if len(data) > maxSheetBytes {
		return nil, fmt.Errorf("sheet exceeds the %d byte limit", maxSheetBytes)
	}
	return data, nil
}

// exportURL rewrites a Google Sheets share link into its CSV export form,
// preserving the selected tab (gid). Non-Google URLs pass through unchanged.
func exportURL(sheetURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(sheetURL))
	if err != nil {
		return "", fmt.Errorf("invalid sheet URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("sheet URL must be http or https")
	}

	if u.Host != "docs.google.com" {
		return u.String(), nil
	}

	m := googleSheetPath.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("unrecognized Google Sheets URL %q", sheetURL)
	}

	export := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", m[1])
	if gid := sheetGID(u); gid != "" {
		export += "&gid=" + gid
	}
	return export, nil
}

func sheetGID(u *url.URL) string {
	if gid := u.Query().Get("gid"); gid != "" {
		return gid
	}
	// Share links usually carry the tab in the fragment: #gid=123456.
	if strings.HasPrefix(u.Fragment, "gid=") {
		return strings.TrimPrefix(u.Fragment, "gid=")
	}
	return ""
}
