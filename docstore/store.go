// Package docstore is the document store boundary: collections of JSON documents with
// push-based subscriptions. Memory backs tests and single-process runs; Postgres keeps
// documents in a JSONB table and learns about remote writes through a Feed.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("document not found")

// Document is one stored document. Data is the JSON body without the id.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Filter is an equality filter on a top-level field.
type Filter struct {
	Field string
	Value any
}

func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// SnapshotFunc receives the full collection on every change.
type SnapshotFunc func(docs []Document)

// ErrorFunc receives subscription failures. The previous snapshot stays valid.
type ErrorFunc func(err error)

type Store interface {
	// Subscribe delivers the current snapshot and then a full snapshot after changes.
	// Deliveries to one subscriber never overlap and never go back to an older snapshot.
	// The returned func removes the subscription and is safe to call more than once.
	Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (func(), error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Add stores data under a generated id and returns it.
	Add(ctx context.Context, collection string, data any) (string, error)
	// Set creates or replaces the document with the given id.
	Set(ctx context.Context, collection, id string, data any) error
	// Update merges patch into the top level of an existing document.
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	// Query returns documents matching every filter, in insertion order.
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
}

// encode marshals data as a JSON object body.
func encode(data any) (json.RawMessage, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	if len(b) == 0 || b[0] != '{' {
		return nil, fmt.Errorf("document must be a JSON object, got %s", b)
	}
	return b, nil
}

// matches reports whether the decoded body satisfies all filters. Values are compared
// by their JSON encoding, which is how the Postgres backend compares jsonb.
func matches(body map[string]json.RawMessage, filters []Filter) (bool, error) {
	for _, f := range filters {
		want, err := json.Marshal(f.Value)
		if err != nil {
			return false, fmt.Errorf("marshal filter %s: %w", f.Field, err)
		}
		got, ok := body[f.Field]
		if !ok || !jsonEqual(got, want) {
			return false, nil
		}
	}
	return true, nil
}

func jsonEqual(a, b []byte) bool {
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return bytes.Equal(a, b)
	}
	ab, _ := json.Marshal(av)
	bb, _ := json.Marshal(bv)
	return bytes.Equal(ab, bb)
}

// DecodeAll decodes every document into T and lets setID copy the document id in.
func DecodeAll[T any](docs []Document, setID func(*T, string)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := d.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.ID, err)
		}
		if setID != nil {
			setID(&v, d.ID)
		}
		out = append(out, v)
	}
	return out, nil
}
