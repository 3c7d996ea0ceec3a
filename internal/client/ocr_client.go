package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"expense-reports-service/internal/apperr"
)

// OCRClient is the narrow interface to the external document-OCR service:
// it uploads a file and returns the extracted markdown plus chunk metadata.
// Parsing internals live entirely on the remote side.
type OCRClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// OCRChunk is one extracted region of the document.
type OCRChunk struct {
	Text string `json:"text"`
	Type string `json:"chunk_type,omitempty"`
	Page int    `json:"page,omitempty"`
}

// OCRResult is the parsed-document payload returned by the OCR service.
type OCRResult struct {
	Markdown string     `json:"markdown"`
	Chunks   []OCRChunk `json:"chunks,omitempty"`
}

// NewOCRClient creates a client for the OCR service at baseURL. An empty
// baseURL yields a client whose calls fail with RPC_ERROR.
func NewOCRClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *OCRClient {
	return &OCRClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// ParseDocument uploads one document and returns the extraction result.
func (c *OCRClient) ParseDocument(ctx context.Context, filename, contentType string, file io.Reader) (*OCRResult, error) {
	if c.baseURL == "" {
		return nil, apperr.New(apperr.CodeRPCError, "OCR service is not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeRPCError, "failed to build OCR request")
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeRPCError, "failed to read document")
	}
	if err := writer.Close(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeRPCError, "failed to build OCR request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/parse", &body)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeRPCError, "failed to build OCR request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeRPCError, "OCR service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("OCR service returned an error")
		return nil, apperr.New(apperr.CodeRPCError,
			fmt.Sprintf("OCR service returned status %d", resp.StatusCode))
	}

	var result OCRResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeRPCError, "failed to decode OCR response")
	}
	return &result, nil
}
