// Package emitter delivers reconciled change batches to the downstream
// ingestion pipeline. Delivery is at-least-once; the pipeline dedupes on
// (item id, version).
package emitter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// Ensure HTTPEmitter implements the interface.
var _ driven.ChangeEmitter = (*HTTPEmitter)(nil)

// maxInlineContent bounds how many content bytes ride inline with a
// record. Larger items are referenced by content_ref only and fetched by
// the pipeline on demand.
const maxInlineContent = 1 << 20

// hydrationConcurrency bounds parallel content fetches per batch.
const hydrationConcurrency = 4

// ContentFetcher opens the content stream behind a content ref.
type ContentFetcher func(ctx context.Context, contentRef string) (io.ReadCloser, error)

// HTTPEmitter posts change batches to an ingestion endpoint. When a
// content fetcher is configured, created and updated records are hydrated
// with inline content before the post, a bounded number at a time.
type HTTPEmitter struct {
	endpoint string
	client   *http.Client
	fetcher  ContentFetcher
}

// wireRecord is the JSON shape of one change record on the wire.
type wireRecord struct {
	Type           string    `json:"type"`
	ItemID         string    `json:"item_id"`
	Version        string    `json:"version,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	Name           string    `json:"name,omitempty"`
	Path           string    `json:"path,omitempty"`
	MIMEType       string    `json:"mime_type,omitempty"`
	Size           int64     `json:"size,omitempty"`
	ModifiedTime   time.Time `json:"modified_time,omitzero"`
	WebURL         string    `json:"web_url,omitempty"`
	ContentRef     string    `json:"content_ref,omitempty"`
	Content        string    `json:"content,omitempty"`
}

// NewHTTPEmitter creates an emitter posting to the given endpoint.
func NewHTTPEmitter(endpoint string) *HTTPEmitter {
	return &HTTPEmitter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// SetContentFetcher enables inline content hydration.
func (e *HTTPEmitter) SetContentFetcher(fetcher ContentFetcher) {
	e.fetcher = fetcher
}

// Emit posts one batch. A 2xx response acknowledges the whole batch.
func (e *HTTPEmitter) Emit(ctx context.Context, batch []domain.ChangeRecord) error {
	if len(batch) == 0 {
		return nil
	}

	records := make([]wireRecord, len(batch))
	for i := range batch {
		records[i] = toWireRecord(&batch[i])
	}

	if e.fetcher != nil {
		if err := e.hydrate(ctx, batch, records); err != nil {
			return err
		}
	}

	body, err := json.Marshal(struct {
		Records []wireRecord `json:"records"`
	}{Records: records})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: ingestion status %d", domain.ErrRejected, resp.StatusCode)
	default:
		return fmt.Errorf("ingestion refused batch with status %d", resp.StatusCode)
	}
}

// hydrate fills inline content for non-delete records, a bounded number
// of fetches at a time. A failed fetch degrades to ref-only rather than
// failing the batch; the pipeline falls back to the content ref.
func (e *HTTPEmitter) hydrate(ctx context.Context, batch []domain.ChangeRecord, records []wireRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrationConcurrency)

	for i := range batch {
		if batch[i].Type == domain.ChangeDeleted || batch[i].ContentRef == "" {
			continue
		}
		if batch[i].Item.Size > maxInlineContent {
			continue
		}

		g.Go(func() error {
			rc, err := e.fetcher(gctx, batch[i].ContentRef)
			if err != nil {
				return nil
			}
			defer rc.Close()

			data, err := io.ReadAll(io.LimitReader(rc, maxInlineContent))
			if err != nil {
				return nil
			}
			records[i].Content = base64.StdEncoding.EncodeToString(data)
			return nil
		})
	}

	return g.Wait()
}

func toWireRecord(r *domain.ChangeRecord) wireRecord {
	return wireRecord{
		Type:           r.Type.String(),
		ItemID:         r.ItemID,
		Version:        r.Version,
		IdempotencyKey: r.IdempotencyKey(),
		Name:           r.Item.Name,
		Path:           r.Item.Path,
		MIMEType:       r.Item.MIMEType,
		Size:           r.Item.Size,
		ModifiedTime:   r.Item.ModifiedTime,
		WebURL:         r.Item.WebURL,
		ContentRef:     r.ContentRef,
	}
}
