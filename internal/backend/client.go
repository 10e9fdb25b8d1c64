// Package backend implements the HTTP client for the remote PDF analysis
// service. The service owns the actual classification, extraction and
// scoring; this client only packages requests and decodes responses.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/pwin-ai/pdf-analyzer/internal/models"
	"go.uber.org/zap"
)

const apiKeyHeader = "X-API-Key"

// Config holds the backend connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the analysis backend. Stateless per call; safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// NewClient creates a backend client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// Classify uploads the documents to the classify endpoint and returns one
// classification per file.
func (c *Client) Classify(ctx context.Context, docs []*models.UploadedDocument) ([]models.Classification, error) {
	const endpoint = "/classify/"

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, doc := range docs {
		if err := writePDFPart(writer, doc); err != nil {
			return nil, fmt.Errorf("build classify request for %s: %w", doc.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}

	var result []models.Classification
	if err := c.post(ctx, endpoint, writer.FormDataContentType(), &body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// EvaluateRFP sends the classification results to the extract endpoint,
// which checks coverage of scope, objectives, tasks and deliverables.
func (c *Client) EvaluateRFP(ctx context.Context, classifications []models.Classification) (*models.RFPEvaluation, error) {
	const endpoint = "/extract/"

	body, err := json.Marshal(classifications)
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}

	var result models.RFPEvaluation
	if err := c.post(ctx, endpoint, jsonContentType, bytes.NewReader(body), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReadinessScore sends the classifications and extraction results to the
// score endpoint and returns the readiness report.
func (c *Client) ReadinessScore(ctx context.Context, classifications []models.Classification, eval *models.RFPEvaluation) (*models.ReadinessReport, error) {
	const endpoint = "/score/"

	request := map[string]interface{}{
		"classified_docs":      classifications,
		"extracted_rfp_result": eval,
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("build score request: %w", err)
	}

	var result models.ReadinessReport
	if err := c.post(ctx, endpoint, jsonContentType, bytes.NewReader(body), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

const jsonContentType = "application/json"

// post performs one request against the backend and decodes the JSON
// response into out. Failures come back as the typed errors in errors.go.
func (c *Client) post(ctx context.Context, endpoint, contentType string, body io.Reader, out interface{}) error {
	url := c.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("backend returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode))
		return &StatusError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Body:     errorText(raw),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}

	c.logger.Debug("backend request complete",
		zap.String("endpoint", endpoint),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// writePDFPart adds one uploaded document to the multipart body as a
// "files" part with application/pdf content type.
func writePDFPart(writer *multipart.Writer, doc *models.UploadedDocument) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, doc.Name))
	header.Set("Content-Type", "application/pdf")

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}

	file, err := os.Open(doc.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(part, file)
	return err
}

// errorText extracts a short error message from a backend error body.
// JSON bodies with a "detail" or "error" field are unwrapped; anything
// else is truncated raw text.
func errorText(raw []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 300 {
		text = text[:300]
	}
	return text
}
