package vectorstore

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docchat/internal/retry"
)

// QdrantConfig configures the Qdrant REST client.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Qdrant is an Index backed by a Qdrant collection using cosine distance.
// Qdrant only accepts UUID or integer point ids, so each chunk id is mapped
// to a name-based UUID and also stored in the payload.
type Qdrant struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu    sync.Mutex
	ready bool
}

const qdrantScrollLimit = 256

// errNotFound marks a 404 from Qdrant, which for most calls just means the
// collection has not been created yet.
var errNotFound = errors.New("qdrant: not found")

func NewQdrant(cfg QdrantConfig) *Qdrant {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Qdrant{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// PointID returns the Qdrant point id for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

func (q *Qdrant) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", q.url, q.collection)
}

// ensureCollection creates the collection on first insert.
func (q *Qdrant) ensureCollection(ctx context.Context, dim int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return nil
	}

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodGet, q.collectionURL(), nil, &info)
	switch {
	case err == nil:
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dim {
			return fmt.Errorf("collection %s has size %d, got %d: %w", q.collection, size, dim, ErrDimensionMismatch)
		}
	case errors.Is(err, errNotFound):
		body := map[string]any{
			"vectors": map[string]any{"size": dim, "distance": "Cosine"},
		}
		if err := q.do(ctx, http.MethodPut, q.collectionURL(), body, nil); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	default:
		return fmt.Errorf("get collection: %w", err)
	}
	q.ready = true
	return nil
}

func (q *Qdrant) InsertBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Embedding)
	points := make([]map[string]any, len(records))
	for i, r := range records {
		if len(r.Embedding) != dim {
			return fmt.Errorf("insert %s: %w", r.ID, ErrDimensionMismatch)
		}
		points[i] = map[string]any{
			"id":     PointID(r.ID),
			"vector": r.Embedding,
			"payload": map[string]any{
				"chunk_id":    r.ID,
				"source":      r.Source,
				"page":        r.Page,
				"chunk_index": r.ChunkIndex,
				"text":        r.Text,
			},
		}
	}
	if err := q.ensureCollection(ctx, dim); err != nil {
		return err
	}
	body := map[string]any{"points": points}
	if err := q.do(ctx, http.MethodPut, q.collectionURL()+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

type qdrantPayload struct {
	ChunkID    string `json:"chunk_id"`
	Source     string `json:"source"`
	Page       int    `json:"page"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

func (p qdrantPayload) record() Record {
	return Record{ID: p.ChunkID, Source: p.Source, Page: p.Page, ChunkIndex: p.ChunkIndex, Text: p.Text}
}

// scroll pages through every point, handing each payload to fn.
func (q *Qdrant) scroll(ctx context.Context, fields []string, fn func(qdrantPayload)) error {
	var offset any
	for {
		req := map[string]any{
			"limit":        qdrantScrollLimit,
			"with_payload": fields,
			"with_vector":  false,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					Payload qdrantPayload `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		err := q.do(ctx, http.MethodPost, q.collectionURL()+"/points/scroll", req, &resp)
		if errors.Is(err, errNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, p := range resp.Result.Points {
			fn(p.Payload)
		}
		if resp.Result.NextPageOffset == nil {
			return nil
		}
		offset = resp.Result.NextPageOffset
	}
}

func (q *Qdrant) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := q.scroll(ctx, []string{"chunk_id"}, func(p qdrantPayload) {
		ids = append(ids, p.ChunkID)
	})
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	return ids, nil
}

func (q *Qdrant) SimilaritySearch(ctx context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 {
		k = 5
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float32       `json:"score"`
			Payload qdrantPayload `json:"payload"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, q.collectionURL()+"/points/search", req, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}
	results := make([]Result, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, Result{Record: r.Payload.record(), Score: r.Score})
	}
	return results, nil
}

func (q *Qdrant) Sources(ctx context.Context) ([]SourceInfo, error) {
	counts := make(map[string]int)
	err := q.scroll(ctx, []string{"source"}, func(p qdrantPayload) {
		counts[p.Source]++
	})
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	out := make([]SourceInfo, 0, len(counts))
	for s, n := range counts {
		out = append(out, SourceInfo{Source: s, Chunks: n})
	}
	slices.SortFunc(out, func(a, b SourceInfo) int { return cmp.Compare(a.Source, b.Source) })
	return out, nil
}

func (q *Qdrant) DeleteSource(ctx context.Context, source string) (int, error) {
	filter := map[string]any{
		"must": []map[string]any{
			{"key": "source", "match": map[string]any{"value": source}},
		},
	}

	var count struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, q.collectionURL()+"/points/count",
		map[string]any{"filter": filter, "exact": true}, &count)
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	if count.Result.Count == 0 {
		return 0, nil
	}

	if err := q.do(ctx, http.MethodPost, q.collectionURL()+"/points/delete?wait=true",
		map[string]any{"filter": filter}, nil); err != nil {
		return 0, fmt.Errorf("delete points: %w", err)
	}
	return count.Result.Count, nil
}

func (q *Qdrant) Reset(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	err := q.do(ctx, http.MethodDelete, q.collectionURL(), nil, nil)
	if err != nil && !errors.Is(err, errNotFound) {
		return fmt.Errorf("drop collection: %w", err)
	}
	q.ready = false
	return nil
}

func (q *Qdrant) Close() error { return nil }

func (q *Qdrant) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &retry.Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &retry.Error{StatusCode: resp.StatusCode, Message: string(msg)}
		}
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, url, resp.StatusCode, retry.Truncate(string(msg), 200))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
