package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vincentbai/visittrace-agent/internal/models"
)

// ErrUnexpectedStatus is returned when the collector answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected collector status")

// HTTPReporter posts visit events to the collection endpoint.
type HTTPReporter struct {
	endpoint string
	client   *http.Client
}

func NewHTTPReporter(endpoint string, timeout time.Duration) *HTTPReporter {
	return &HTTPReporter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Report sends one event. Any 2xx response counts as delivered; the body is
// drained and ignored.
func (r *HTTPReporter) Report(ctx context.Context, event models.VisitEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal visit event: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build collector request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-Request-Id", uuid.NewString())

	response, err := r.client.Do(request)
	if err != nil {
		return fmt.Errorf("post visit event: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, response.StatusCode)
	}
	return nil
}
