package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore implements Store against a Qdrant collection over gRPC.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimensions int
}

// NewQdrantStore connects to Qdrant and verifies it is reachable with an
// exponential-backoff health check. Fails fast when the store is down so
// the server does not start half-broken.
func NewQdrantStore(host string, port int, collection string, dimensions int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStore{client: client, collection: collection, dimensions: dimensions}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return s, nil
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		result, err := s.client.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		if result == nil || result.Title == "" {
			return fmt.Errorf("health check returned invalid response")
		}
		return nil
	}, bo)
}

// EnsureCollection creates the collection with cosine distance and the
// payload indexes the filters rely on. Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Without payload indexes filtered search degrades badly on large corpora.
	for _, field := range []string{"university_id", "source_url"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, doc Document) error {
	if len(doc.Embedding) != s.dimensions {
		return fmt.Errorf("%w: document has %d dimensions, expected %d",
			ErrDimensionMismatch, len(doc.Embedding), s.dimensions)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	payload := map[string]any{
		"content":       doc.Content,
		"title":         doc.Title,
		"source_url":    doc.SourceURL,
		"university_id": doc.UniversityID,
	}
	for k, v := range doc.Metadata {
		payload["meta_"+k] = v
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(doc.ID),
		Vectors: qdrant.NewVectors(doc.Embedding...),
		Payload: qdrant.NewValueMap(payload),
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         []*qdrant.PointStruct{point},
		})
		return err
	}, bo)
}

func (s *QdrantStore) Search(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]SearchResult, error) {
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimensions)
	}

	var qf *qdrant.Filter
	if len(filter) > 0 {
		var must []*qdrant.Condition
		for field, value := range filter {
			must = append(must, qdrant.NewMatch(field, value))
		}
		qf = &qdrant.Filter{Must: must}
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         qf,
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	out := make([]SearchResult, 0, len(results))
	for i, result := range results {
		payload := result.Payload
		out = append(out, SearchResult{
			DocumentID: result.Id.GetUuid(),
			Content:    payload["content"].GetStringValue(),
			Title:      payload["title"].GetStringValue(),
			SourceURL:  payload["source_url"].GetStringValue(),
			Similarity: float64(result.Score),
			Rank:       i + 1,
			SearchType: SearchTypeSemantic,
		})
	}
	return out, nil
}

func (s *QdrantStore) Get(ctx context.Context, id string) (*Document, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}

	payload := result[0].Payload
	doc := &Document{
		ID:           id,
		Content:      payload["content"].GetStringValue(),
		Title:        payload["title"].GetStringValue(),
		SourceURL:    payload["source_url"].GetStringValue(),
		UniversityID: payload["university_id"].GetStringValue(),
	}
	for k, v := range payload {
		if len(k) > 5 && k[:5] == "meta_" {
			if doc.Metadata == nil {
				doc.Metadata = make(map[string]string)
			}
			doc.Metadata[k[5:]] = v.GetStringValue()
		}
	}
	return doc, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	collection, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return int(collection.GetPointsCount()), nil
}

func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
