package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/noah-isme/school-community-api/internal/models"
)

// HTTPClassifier calls an external moderation classifier over HTTP. The
// service treats it as a black box; errors here surface to the fail-open
// policy in ModerationService.
type HTTPClassifier struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClassifier constructs a classifier client against the given base URL.
func NewHTTPClassifier(baseURL string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClassifier{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type classifyRequest struct {
	Content string `json:"content"`
}

// Classify submits the content and decodes the verdict.
func (c *HTTPClassifier) Classify(ctx context.Context, content string) (*models.ClassifierVerdict, error) {
	payload, err := json.Marshal(classifyRequest{Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var verdict models.ClassifierVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("failed to decode classifier verdict: %w", err)
	}
	return &verdict, nil
}
