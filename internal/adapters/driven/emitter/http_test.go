package emitter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

type capturedBatch struct {
	Records []struct {
		Type           string `json:"type"`
		ItemID         string `json:"item_id"`
		Version        string `json:"version"`
		IdempotencyKey string `json:"idempotency_key"`
		ContentRef     string `json:"content_ref"`
		Content        string `json:"content"`
	} `json:"records"`
}

func testBatch() []domain.ChangeRecord {
	return []domain.ChangeRecord{
		{
			Type:       domain.ChangeCreated,
			ItemID:     "item-1",
			Version:    "v1",
			Item:       domain.RemoteItem{ID: "item-1", Name: "a.txt", Size: 3},
			ContentRef: "google_drive://items/item-1",
		},
		{
			Type:   domain.ChangeDeleted,
			ItemID: "item-2",
		},
	}
}

func TestHTTPEmitter_EmitAcknowledged(t *testing.T) {
	var got capturedBatch
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	e := NewHTTPEmitter(srv.URL)
	require.NoError(t, e.Emit(context.Background(), testBatch()))

	require.Len(t, got.Records, 2)
	assert.Equal(t, "created", got.Records[0].Type)
	assert.Equal(t, "item-1@v1", got.Records[0].IdempotencyKey)
	assert.Equal(t, "google_drive://items/item-1", got.Records[0].ContentRef)
	assert.Equal(t, "deleted", got.Records[1].Type)
	assert.Equal(t, "item-2@", got.Records[1].IdempotencyKey)
}

func TestHTTPEmitter_EmptyBatchIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer srv.Close()

	e := NewHTTPEmitter(srv.URL)
	require.NoError(t, e.Emit(context.Background(), nil))
	assert.False(t, called)
}

func TestHTTPEmitter_ServerErrorsAreRejections(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		e := NewHTTPEmitter(srv.URL)
		err := e.Emit(context.Background(), testBatch())
		assert.ErrorIs(t, err, domain.ErrRejected, "status %d", status)
		srv.Close()
	}
}

func TestHTTPEmitter_ClientErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	e := NewHTTPEmitter(srv.URL)
	err := e.Emit(context.Background(), testBatch())
	require.Error(t, err)
	assert.False(t, domain.Retryable(err))
}

func TestHTTPEmitter_NetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	e := NewHTTPEmitter(srv.URL)
	err := e.Emit(context.Background(), testBatch())
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestHTTPEmitter_HydratesInlineContent(t *testing.T) {
	var got capturedBatch
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	e := NewHTTPEmitter(srv.URL)
	e.SetContentFetcher(func(_ context.Context, contentRef string) (io.ReadCloser, error) {
		assert.Equal(t, "google_drive://items/item-1", contentRef)
		return io.NopCloser(strings.NewReader("abc")), nil
	})

	require.NoError(t, e.Emit(context.Background(), testBatch()))

	require.Len(t, got.Records, 2)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("abc")), got.Records[0].Content)
	// Deletes never carry content.
	assert.Empty(t, got.Records[1].Content)
}

func TestHTTPEmitter_FetchFailureDegradesToRefOnly(t *testing.T) {
	var got capturedBatch
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	e := NewHTTPEmitter(srv.URL)
	e.SetContentFetcher(func(_ context.Context, _ string) (io.ReadCloser, error) {
		return nil, domain.ErrNotFound
	})

	require.NoError(t, e.Emit(context.Background(), testBatch()))
	assert.Empty(t, got.Records[0].Content)
	assert.NotEmpty(t, got.Records[0].ContentRef)
}

func TestHTTPEmitter_OversizeContentStaysRefOnly(t *testing.T) {
	var got capturedBatch
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	fetched := false
	e := NewHTTPEmitter(srv.URL)
	e.SetContentFetcher(func(_ context.Context, _ string) (io.ReadCloser, error) {
		fetched = true
		return io.NopCloser(strings.NewReader("x")), nil
	})

	batch := testBatch()
	batch[0].Item.Size = maxInlineContent + 1

	require.NoError(t, e.Emit(context.Background(), batch))
	assert.False(t, fetched)
	assert.Empty(t, got.Records[0].Content)
}

func TestMemoryEmitter_RecordsAndFailureInjection(t *testing.T) {
	e := NewMemoryEmitter()
	ctx := context.Background()

	require.NoError(t, e.Emit(ctx, testBatch()))

	e.FailNext(2, domain.ErrRejected)
	assert.ErrorIs(t, e.Emit(ctx, testBatch()), domain.ErrRejected)
	assert.ErrorIs(t, e.Emit(ctx, testBatch()), domain.ErrRejected)
	require.NoError(t, e.Emit(ctx, testBatch()))

	assert.Len(t, e.Batches(), 2)
	assert.Len(t, e.Records(), 4)
}
