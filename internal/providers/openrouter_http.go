package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// statusError is a non-200 response from OpenRouter.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("OpenRouter error (status %d): %s", e.StatusCode, e.Body)
}

// doRequest posts body to path, retrying transport failures, 429 and 5xx
// responses with exponential backoff. It returns the number of attempts made.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, body *openRouterRequest) (*openRouterResponse, int, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	attempts := 0
	resp, err := retry.DoWithData(
		func() (*openRouterResponse, error) {
			attempts++
			return c.post(ctx, path, bodyBytes)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(c.retryDelay/2),
		retry.LastErrorOnly(true),
		retry.RetryIf(c.shouldRetry),
	)
	if err != nil {
		return nil, attempts, err
	}
	return resp, attempts, nil
}

func (c *OpenRouterClient) post(ctx context.Context, path string, body []byte) (*openRouterResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/lexreview")
	req.Header.Set("X-Title", "lexreview")

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

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to unmarshal response: %w", err))
	}

	// API-level errors arrive with a 200; overloads are worth another try.
	if orResp.Error != nil {
		code := fmt.Sprintf("%v", orResp.Error.Code)
		switch code {
		case "overloaded", "rate_limit_exceeded", "502", "503":
			return nil, fmt.Errorf("OpenRouter API error (retryable): %s", orResp.Error.Message)
		}
		return nil, retry.Unrecoverable(fmt.Errorf("OpenRouter API error: %s", orResp.Error.Message))
	}
	if len(orResp.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response (model=%s, id=%s)", orResp.Model, orResp.ID)
	}

	return &orResp, nil
}

// shouldRetry returns true for failures that may succeed on another attempt.
func (c *OpenRouterClient) shouldRetry(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests:
			if c.limiter != nil {
				c.limiter.Record429()
			}
			return true
		default:
			return se.StatusCode >= 500
		}
	}
	return true
}
