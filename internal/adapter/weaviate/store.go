package weaviate

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"securerag/backend/internal/vector"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// Upsert writes all records in one batch import. Object UUIDs are derived
// from the chunk id, so re-importing the same chunk replaces the prior
// object instead of duplicating it. A partially applied batch is safe:
// redelivery re-imports the full set.
func (s *Store) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(records))
	for _, r := range records {
		objects = append(objects, &models.Object{
			Class: vector.ClassName,
			ID:    strfmt.UUID(vector.ObjectUUID(r.ChunkID)),
			Properties: map[string]interface{}{
				"content":    r.Content,
				"filename":   r.Filename,
				"chunkIndex": r.ChunkIndex,
				"chunkId":    r.ChunkID,
			},
			Vector: r.Vector,
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return err
	}

	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch upsert error on %s: %s", obj.ID, obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Query returns the k nearest chunks for the given embedding, ascending
// by distance. An empty store yields an empty result, not an error.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]vector.Hit, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(embedding)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "filename"},
		{Name: "chunkIndex"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var hits []vector.Hit
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if chunks, ok := data[vector.ClassName].([]interface{}); ok {
			for _, c := range chunks {
				props, ok := c.(map[string]interface{})
				if !ok {
					continue
				}

				hit := vector.Hit{}
				if content, ok := props["content"].(string); ok {
					hit.Content = content
				}
				if filename, ok := props["filename"].(string); ok {
					hit.Filename = filename
				}
				if idx, ok := props["chunkIndex"].(float64); ok {
					hit.ChunkIndex = int(idx)
				}
				if additional, ok := props["_additional"].(map[string]interface{}); ok {
					if distance, ok := additional["distance"].(float64); ok {
						hit.Distance = float32(distance)
					}
				}

				hits = append(hits, hit)
			}
		}
	}

	return hits, nil
}
