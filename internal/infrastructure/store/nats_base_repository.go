// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
)

// NATS Key-Value store bucket names
const (
	KVStoreNameMeetingRecords = "google-meet-meetings"
	KVStoreNameEventLogs      = "google-meet-event-logs"
	KVStoreNameSettings       = "google-meet-settings"
	KVStoreNameCredentials    = "google-meet-credentials"
)

// tracerName is the instrumentation name for the store package.
const tracerName = "github.com/linuxfoundation/lfx-v2-google-meet-service/internal/infrastructure/store"

// INatsKeyValue is the subset of jetstream.KeyValue used by the repositories.
// It allows for mocking in tests.
type INatsKeyValue interface {
	ListKeys(context.Context, ...jetstream.WatchOpt) (jetstream.KeyLister, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(context.Context, string, []byte) (uint64, error)
	Update(context.Context, string, []byte, uint64) (uint64, error)
	Delete(context.Context, string, ...jetstream.KVDeleteOpt) error
}

// NatsBaseRepository provides common NATS KV operations that can be reused across all repositories
type NatsBaseRepository[T any] struct {
	kvStore    INatsKeyValue
	entityName string // Used in error messages (e.g., "meeting record", "event log")
}

// NewNatsBaseRepository creates a new base repository for NATS KV operations
func NewNatsBaseRepository[T any](kvStore INatsKeyValue, entityName string) *NatsBaseRepository[T] {
	return &NatsBaseRepository[T]{
		kvStore:    kvStore,
		entityName: entityName,
	}
}

// IsReady checks if the repository is ready for use
func (r *NatsBaseRepository[T]) IsReady() bool {
	return r.kvStore != nil
}

// startSpan opens a client span for one KV operation.
func (r *NatsBaseRepository[T]) startSpan(ctx context.Context, op, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		attribute.String("db.system", "nats"),
		attribute.String("db.operation", op),
		attribute.String("db.nats.entity", r.entityName),
	}
	if key != "" {
		base = append(base, attribute.String("db.nats.key", key))
	}
	return otel.Tracer(tracerName).Start(ctx, "nats.kv."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(base, attrs...)...),
	)
}

// endSpan closes span with the outcome of the operation.
func endSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeNotFound:
		span.SetStatus(codes.Error, "not found")
	case domain.ErrorTypeConflict:
		span.SetStatus(codes.Error, "conflict")
	default:
		span.SetStatus(codes.Error, err.Error())
	}
}

func (r *NatsBaseRepository[T]) unavailable() error {
	return domain.NewUnavailableError(fmt.Sprintf("%s repository is not available", r.entityName))
}

// mapWriteError converts a KV write error into a domain error.
func (r *NatsBaseRepository[T]) mapWriteError(ctx context.Context, op, key string, err error) error {
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return domain.NewNotFoundError(fmt.Sprintf("%s not found", r.entityName), err)
	}
	if errors.Is(err, jetstream.ErrKeyExists) || strings.Contains(err.Error(), "wrong last sequence") {
		return domain.NewConflictError(fmt.Sprintf("%s has been modified", r.entityName), domain.ErrRevisionMismatch, err)
	}
	slog.ErrorContext(ctx, fmt.Sprintf("error during %s of %s in NATS KV", op, r.entityName),
		logging.ErrKey, err, "key", key)
	return domain.NewInternalError(fmt.Sprintf("failed to %s %s in store", op, r.entityName), err)
}

// GetRaw retrieves a raw entry from NATS KV store
func (r *NatsBaseRepository[T]) GetRaw(ctx context.Context, key string) (entry jetstream.KeyValueEntry, err error) {
	ctx, span := r.startSpan(ctx, "get", key)
	defer func() { endSpan(span, err) }()

	if !r.IsReady() {
		return nil, r.unavailable()
	}

	entry, err = r.kvStore.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, domain.NewNotFoundError(
				fmt.Sprintf("%s with key '%s' not found", r.entityName, key), err)
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error getting %s from NATS KV", r.entityName),
			logging.ErrKey, err, "key", key)
		return nil, domain.NewInternalError(
			fmt.Sprintf("failed to retrieve %s from store", r.entityName), err)
	}
	return entry, nil
}

// Get retrieves and unmarshals an entity from NATS KV store
func (r *NatsBaseRepository[T]) Get(ctx context.Context, key string) (*T, error) {
	entity, _, err := r.GetWithRevision(ctx, key)
	return entity, err
}

// GetWithRevision retrieves an entity with its revision from NATS KV store
func (r *NatsBaseRepository[T]) GetWithRevision(ctx context.Context, key string) (*T, uint64, error) {
	entry, err := r.GetRaw(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	entity, err := r.Unmarshal(ctx, entry)
	if err != nil {
		return nil, 0, domain.NewInternalError(
			fmt.Sprintf("failed to unmarshal %s data", r.entityName), domain.ErrUnmarshal, err)
	}

	return entity, entry.Revision(), nil
}

// Unmarshal unmarshals a NATS KV entry into the entity type
func (r *NatsBaseRepository[T]) Unmarshal(ctx context.Context, entry jetstream.KeyValueEntry) (*T, error) {
	var entity T
	if err := json.Unmarshal(entry.Value(), &entity); err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error unmarshaling %s", r.entityName),
			logging.ErrKey, err, "key", entry.Key())
		return nil, err
	}
	return &entity, nil
}

// Marshal marshals an entity to JSON bytes
func (r *NatsBaseRepository[T]) Marshal(ctx context.Context, entity *T) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error marshaling %s", r.entityName),
			logging.ErrKey, err)
		return nil, domain.NewInternalError(fmt.Sprintf("failed to marshal %s", r.entityName), err)
	}
	return data, nil
}

// Exists checks if an entity exists in the store
func (r *NatsBaseRepository[T]) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.GetRaw(ctx, key)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create stores a new entity using Put
func (r *NatsBaseRepository[T]) Create(ctx context.Context, key string, entity *T) (err error) {
	ctx, span := r.startSpan(ctx, "put", key)
	defer func() { endSpan(span, err) }()

	if !r.IsReady() {
		return r.unavailable()
	}

	data, err := r.Marshal(ctx, entity)
	if err != nil {
		return err
	}

	if _, err = r.kvStore.Put(ctx, key, data); err != nil {
		return r.mapWriteError(ctx, "create", key, err)
	}
	return nil
}

// Update updates an existing entity in the store with optimistic concurrency control
func (r *NatsBaseRepository[T]) Update(ctx context.Context, key string, entity *T, revision uint64) (err error) {
	ctx, span := r.startSpan(ctx, "update", key, attribute.Int64("db.nats.revision", int64(revision)))
	defer func() { endSpan(span, err) }()

	if !r.IsReady() {
		return r.unavailable()
	}

	data, err := r.Marshal(ctx, entity)
	if err != nil {
		return err
	}

	if _, err = r.kvStore.Update(ctx, key, data, revision); err != nil {
		return r.mapWriteError(ctx, "update", key, err)
	}
	return nil
}

// Delete removes an entity from the store with optimistic concurrency control
func (r *NatsBaseRepository[T]) Delete(ctx context.Context, key string, revision uint64) (err error) {
	ctx, span := r.startSpan(ctx, "delete", key, attribute.Int64("db.nats.revision", int64(revision)))
	defer func() { endSpan(span, err) }()

	if !r.IsReady() {
		return r.unavailable()
	}

	if err = r.kvStore.Delete(ctx, key, jetstream.LastRevision(revision)); err != nil {
		return r.mapWriteError(ctx, "delete", key, err)
	}
	return nil
}

// ListKeys lists the keys in the store that start with prefix
func (r *NatsBaseRepository[T]) ListKeys(ctx context.Context, prefix string) (keys []string, err error) {
	ctx, span := r.startSpan(ctx, "list_keys", "", attribute.String("db.nats.prefix", prefix))
	defer func() { endSpan(span, err) }()

	if !r.IsReady() {
		return nil, r.unavailable()
	}

	lister, err := r.kvStore.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error listing %s keys from NATS KV", r.entityName),
			logging.ErrKey, err)
		return nil, domain.NewInternalError(
			fmt.Sprintf("failed to list %s keys from store", r.entityName), err)
	}
	defer func() {
		_ = lister.Stop()
	}()

	for key := range lister.Keys() {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	span.SetAttributes(attribute.Int("db.nats.keys_count", len(keys)))
	return keys, nil
}

// ListEntities lists all entities whose key starts with prefix
func (r *NatsBaseRepository[T]) ListEntities(ctx context.Context, prefix string) ([]*T, error) {
	keys, err := r.ListKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var entities []*T
	for _, key := range keys {
		entity, err := r.Get(ctx, key)
		if err != nil {
			// Log error but continue with other entities
			slog.WarnContext(ctx, fmt.Sprintf("failed to get %s, skipping", r.entityName),
				"key", key, logging.ErrKey, err)
			continue
		}
		entities = append(entities, entity)
	}

	return entities, nil
}

// ListIndexedUIDs returns the entity uids stored under an index prefix such
// as "index/conference/abc123/".
func (r *NatsBaseRepository[T]) ListIndexedUIDs(ctx context.Context, indexPrefix string) ([]string, error) {
	keys, err := r.ListKeys(ctx, indexPrefix)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(keys))
	for _, key := range keys {
		uid := strings.TrimPrefix(key, indexPrefix)
		if uid == "" || strings.Contains(uid, "/") {
			continue
		}
		uids = append(uids, uid)
	}
	return uids, nil
}

// PutIndex creates an index entry in the store (stores empty value, key is used for indexing)
func (r *NatsBaseRepository[T]) PutIndex(ctx context.Context, indexKey string) error {
	if !r.IsReady() {
		return r.unavailable()
	}

	if _, err := r.kvStore.Put(ctx, indexKey, []byte{}); err != nil {
		slog.ErrorContext(ctx, "error creating index",
			logging.ErrKey, err, "index_key", indexKey)
		return domain.NewInternalError("failed to create index", err)
	}
	return nil
}

// DeleteIndex removes an index entry from the store. A missing index is not an error.
func (r *NatsBaseRepository[T]) DeleteIndex(ctx context.Context, indexKey string) error {
	if !r.IsReady() {
		return r.unavailable()
	}

	if err := r.kvStore.Delete(ctx, indexKey); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		slog.WarnContext(ctx, "error deleting index",
			logging.ErrKey, err, "index_key", indexKey)
		return domain.NewInternalError("failed to delete index", err)
	}
	return nil
}

// SyncIndexes deletes the index keys in before that are absent from after
// and creates the ones in after that are absent from before.
func (r *NatsBaseRepository[T]) SyncIndexes(ctx context.Context, before, after []string) error {
	keep := make(map[string]bool, len(after))
	for _, key := range after {
		keep[key] = true
	}
	had := make(map[string]bool, len(before))
	var errs []error
	for _, key := range before {
		had[key] = true
		if !keep[key] {
			if err := r.DeleteIndex(ctx, key); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, key := range after {
		if !had[key] {
			if err := r.PutIndex(ctx, key); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
