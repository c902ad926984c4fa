package importeradapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
)

// OCRExtractor calls an external OCR service that turns a roster photo into
// structured rows. The service contract mirrors the parser output: a header
// list plus row maps, with unreadable lines in the error list.
type OCRExtractor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewOCRExtractor(baseURL, apiKey string) *OCRExtractor {
	return &OCRExtractor{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// ExtractRows submits the image and decodes the extracted row set.
func (e *OCRExtractor) ExtractRows(ctx context.Context, image []byte) (*domain.ParseResult, error) {
	if e.baseURL == "" {
		return nil, fmt.Errorf("OCR service URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/extract", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("OCR service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result domain.ParseResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode OCR response: %w", err)
	}
	if len(result.SourceColumns) == 0 {
		return nil, fmt.Errorf("no table detected in the photo")
	}
	return &result, nil
}
