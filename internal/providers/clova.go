package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const ClovaOCRName = "clova"

// ClovaOCRConfig holds configuration for the CLOVA OCR client.
type ClovaOCRConfig struct {
	InvokeURL  string // Per-domain API Gateway URL
	SecretKey  string
	Timeout    time.Duration
	HTTPClient *http.Client // Optional (tests)
}

// ClovaOCRClient implements OCRProvider against the CLOVA general OCR API.
type ClovaOCRClient struct {
	invokeURL string
	secretKey string
	client    *http.Client
}

// NewClovaOCRClient creates a new CLOVA OCR client.
func NewClovaOCRClient(cfg ClovaOCRConfig) *ClovaOCRClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &ClovaOCRClient{
		invokeURL: cfg.InvokeURL,
		secretKey: cfg.SecretKey,
		client:    httpClient,
	}
}

// Name returns the provider identifier.
func (c *ClovaOCRClient) Name() string {
	return ClovaOCRName
}

// Configured reports whether both the URL and the secret are set.
func (c *ClovaOCRClient) Configured() bool {
	return c.invokeURL != "" && c.secretKey != ""
}

type clovaRequest struct {
	Version   string       `json:"version"`
	RequestID string       `json:"requestId"`
	Timestamp int64        `json:"timestamp"`
	Lang      string       `json:"lang,omitempty"`
	Images    []clovaImage `json:"images"`
}

type clovaImage struct {
	Format string `json:"format"`
	Name   string `json:"name"`
	Data   string `json:"data"`
}

type clovaResponse struct {
	Images []struct {
		InferResult        string `json:"inferResult"`
		Message            string `json:"message"`
		ConvertedImageInfo struct {
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"convertedImageInfo"`
		Fields []struct {
			InferText    string `json:"inferText"`
			LineBreak    bool   `json:"lineBreak"`
			BoundingPoly struct {
				Vertices []struct {
					X float64 `json:"x"`
					Y float64 `json:"y"`
				} `json:"vertices"`
			} `json:"boundingPoly"`
		} `json:"fields"`
	} `json:"images"`
}

// Recognize sends image to CLOVA and returns the recognized words.
func (c *ClovaOCRClient) Recognize(ctx context.Context, image []byte, format string) (*OCRResult, error) {
	start := time.Now()
	if !c.Configured() {
		return nil, fmt.Errorf("clova OCR invoke URL or secret is not configured")
	}

	body, err := json.Marshal(clovaRequest{
		Version:   "V2",
		RequestID: uuid.New().String(),
		Timestamp: time.Now().UnixMilli(),
		Lang:      "ko",
		Images: []clovaImage{{
			Format: strings.ToLower(strings.TrimPrefix(format, ".")),
			Name:   "agreement",
			Data:   base64.StdEncoding.EncodeToString(image),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invokeURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-OCR-SECRET", c.secretKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var cr clovaResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(cr.Images) == 0 {
		return nil, fmt.Errorf("clova response has no images")
	}
	img := cr.Images[0]
	if img.InferResult != "" && img.InferResult != "SUCCESS" {
		return nil, fmt.Errorf("clova inference failed: %s %s", img.InferResult, img.Message)
	}

	result := &OCRResult{
		Width:  img.ConvertedImageInfo.Width,
		Height: img.ConvertedImageInfo.Height,
	}
	var text strings.Builder
	for _, f := range img.Fields {
		w := OCRWord{Text: f.InferText, Page: 1, LineBreak: f.LineBreak}
		if len(f.BoundingPoly.Vertices) > 0 {
			w.X0, w.Y0 = math.Inf(1), math.Inf(1)
			w.X1, w.Y1 = math.Inf(-1), math.Inf(-1)
			for _, v := range f.BoundingPoly.Vertices {
				w.X0 = math.Min(w.X0, v.X)
				w.Y0 = math.Min(w.Y0, v.Y)
				w.X1 = math.Max(w.X1, v.X)
				w.Y1 = math.Max(w.Y1, v.Y)
			}
		}
		result.Words = append(result.Words, w)

		text.WriteString(f.InferText)
		if f.LineBreak {
			text.WriteString("\n")
		} else {
			text.WriteString(" ")
		}
	}
	result.Text = strings.TrimSpace(text.String())

	// Older responses omit convertedImageInfo; fall back to the word extent.
	if result.Width == 0 || result.Height == 0 {
		for _, w := range result.Words {
			result.Width = math.Max(result.Width, w.X1)
			result.Height = math.Max(result.Height, w.Y1)
		}
	}
	result.ExecutionTime = time.Since(start)
	return result, nil
}

var _ OCRProvider = (*ClovaOCRClient)(nil)
