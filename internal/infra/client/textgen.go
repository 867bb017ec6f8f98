// Package client holds HTTP clients for external services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

const textGenService = "textgen"

// TextGenClient calls the LLM text-generation service.
type TextGenClient struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
}

// NewTextGenClient creates a new TextGenClient. timeout bounds one whole
// generation, retries included.
func NewTextGenClient(httpClient *http.Client, baseURL string, timeout time.Duration, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *TextGenClient {
	return &TextGenClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		timeout:    timeout,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
	}
}

// Generate sends a prompt and returns the generated text or JSON document.
func (c *TextGenClient) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "TextGenClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("generation.task", req.Task),
		attribute.String("generation.request_id", req.RequestID),
	)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, c.wrapErr(ctx, err)
	}
	defer c.bulkhead.Release()

	result, err := c.cb.Execute(func() (any, error) {
		var out domain.GenerationResult
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(req)
			if err != nil {
				return resilience.Permanent(err)
			}

			url := fmt.Sprintf("%s/v1/generate", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return resilience.Permanent(err)
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("textgen API returned status %d", resp.StatusCode)
				if resp.StatusCode < http.StatusInternalServerError {
					return resilience.Permanent(err)
				}
				return err
			}

			out = domain.GenerationResult{}
			return json.NewDecoder(resp.Body).Decode(&out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &out, nil
	})
	if err != nil {
		return nil, c.wrapErr(ctx, err)
	}

	res := result.(*domain.GenerationResult)
	if res.RequestID == "" {
		res.RequestID = req.RequestID
	}
	if len(req.Schema) > 0 && len(res.JSON) == 0 {
		return nil, &domain.ErrExternalService{Service: textGenService, Err: errors.New("structured output requested but no json returned")}
	}
	return res, nil
}

func (c *TextGenClient) wrapErr(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: textGenService}
	case resilience.IsCircuitOpen(err):
		return &domain.ErrCircuitOpen{Service: textGenService}
	}
	return &domain.ErrExternalService{Service: textGenService, Err: err}
}
