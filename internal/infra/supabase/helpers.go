package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Document rows
// ============================================================

// docRow maps the shared column layout of every collection table.
type docRow struct {
	ID        string          `json:"id"`
	UID       string          `json:"uid"`
	Doc       json.RawMessage `json:"doc"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

func listDocs[T any](ctx context.Context, c *Client, table, uid string) ([]T, error) {
	ctx, span := tracer.Start(ctx, "Supabase.List")
	defer span.End()
	span.SetAttributes(attribute.String("table", table))

	var out []T
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("%s?uid=eq.%s&select=id,uid,doc&order=id.asc", table, url.QueryEscape(uid))
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		out, err = decodeRows[T](body)
		return err
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/" + table, Err: err}
	}
	return out, nil
}

func getDoc[T any](ctx context.Context, c *Client, table, uid, id string) (*T, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Get")
	defer span.End()
	span.SetAttributes(attribute.String("table", table), attribute.String("doc.id", id))

	var rows []T
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("%s?uid=eq.%s&id=eq.%s&select=id,uid,doc&limit=1", table, url.QueryEscape(uid), url.QueryEscape(id))
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		rows, err = decodeRows[T](body)
		return err
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/" + table, Err: err}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: table, ID: id}
	}
	return &rows[0], nil
}

func upsertDoc(ctx context.Context, c *Client, table, uid, id string, doc any) error {
	ctx, span := tracer.Start(ctx, "Supabase.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("table", table), attribute.String("doc.id", id))

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	row := docRow{ID: id, UID: uid, Doc: raw, UpdatedAt: time.Now().UTC().Format(time.RFC3339)}

	err = c.execute(ctx, func() error {
		return c.doUpsert(ctx, table, row)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/" + table, Err: err}
	}
	return nil
}

func deleteDoc(ctx context.Context, c *Client, table, uid, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("table", table), attribute.String("doc.id", id))

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("%s?uid=eq.%s&id=eq.%s", table, url.QueryEscape(uid), url.QueryEscape(id))
		return c.doDelete(ctx, path)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/" + table, Err: err}
	}
	return nil
}

func decodeRows[T any](body []byte) ([]T, error) {
	if len(body) == 0 {
		return []T{}, nil
	}
	var rows []docRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		var v T
		if err := json.Unmarshal(r.Doc, &v); err != nil {
			return nil, fmt.Errorf("decode doc %s: %w", r.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ============================================================
// HTTP helpers for upsert and DELETE
// ============================================================

func (c *Client) doUpsert(ctx context.Context, table string, row docRow) error {
	url := fmt.Sprintf("%s/rest/v1/%s?on_conflict=uid,id", c.baseURL, table)
	jsonBody, err := json.Marshal(row)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: upsert request failed",
			zap.String("table", table),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := readBody(resp)
		c.logger.Warn("supabase: upsert non-2xx",
			zap.String("table", table),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		err := fmt.Errorf("supabase upsert %s returned %d: %s", table, resp.StatusCode, string(body))
		if resp.StatusCode < http.StatusInternalServerError {
			return resilience.Permanent(err)
		}
		return err
	}

	c.logger.Debug("supabase: upsert OK", zap.String("table", table), zap.String("id", row.ID))
	return nil
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: DELETE request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := readBody(resp)
		c.logger.Warn("supabase: DELETE non-2xx",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return fmt.Errorf("supabase DELETE returned %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug("supabase: DELETE OK", zap.String("path", path))
	return nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
