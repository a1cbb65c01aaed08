package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// KVEntry wraps a KV entry with its revision
type KVEntry struct {
	Key      string
	Value    []byte
	Revision uint64
	Created  time.Time
}

// KVOptions configures KV operations behavior
type KVOptions struct {
	Timeout      time.Duration // Operation timeout
	MaxValueSize int           // Maximum size for values
}

// DefaultKVOptions returns the defaults used by the archive.
func DefaultKVOptions() KVOptions {
	return KVOptions{
		Timeout:      5 * time.Second,
		MaxValueSize: 1024 * 1024,
	}
}

// KVStore provides KV operations with timeouts and error mapping.
type KVStore struct {
	bucket  jetstream.KeyValue
	options KVOptions
	logger  *slog.Logger
}

// NewKVStore wraps bucket.
func (c *Client) NewKVStore(bucket jetstream.KeyValue, opts ...func(*KVOptions)) *KVStore {
	options := DefaultKVOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &KVStore{
		bucket:  bucket,
		options: options,
		logger:  c.logger.With("bucket", bucket.Bucket()),
	}
}

func (kv *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if kv.options.Timeout > 0 {
		return context.WithTimeout(ctx, kv.options.Timeout)
	}
	return ctx, func() {}
}

// Get retrieves a value with its revision
func (kv *KVStore) Get(ctx context.Context, key string) (*KVEntry, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	entry, err := kv.bucket.Get(ctx, key)
	if err != nil {
		if IsKVNotFoundError(err) {
			return nil, ErrKVKeyNotFound
		}
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}

	return &KVEntry{
		Key:      key,
		Value:    entry.Value(),
		Revision: entry.Revision(),
		Created:  entry.Created(),
	}, nil
}

// Put creates or updates a key (last writer wins)
func (kv *KVStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	if kv.options.MaxValueSize > 0 && len(value) > kv.options.MaxValueSize {
		return 0, fmt.Errorf("kv put %s: %w: size %d exceeds %d",
			key, ErrKVValueTooLarge, len(value), kv.options.MaxValueSize)
	}

	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	rev, err := kv.bucket.Put(ctx, key, value)
	if err != nil {
		return 0, fmt.Errorf("kv put %s: %w", key, err)
	}

	kv.logger.Debug("KV put", "key", key, "revision", rev)
	return rev, nil
}

// Delete removes a key from the bucket
func (kv *KVStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	if err := kv.bucket.Delete(ctx, key); err != nil {
		if IsKVNotFoundError(err) {
			return ErrKVKeyNotFound
		}
		return fmt.Errorf("kv delete %s: %w", key, err)
	}

	kv.logger.Debug("KV delete", "key", key)
	return nil
}

// Keys returns the live keys in lexical order. An empty bucket yields nil.
func (kv *KVStore) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	keys, err := kv.bucket.Keys(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("kv keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Purge removes every key.
func (kv *KVStore) Purge(ctx context.Context) error {
	keys, err := kv.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := kv.Delete(ctx, key); err != nil && !stderrors.Is(err, ErrKVKeyNotFound) {
			return err
		}
	}
	return nil
}

// IsKVNotFoundError checks if error indicates key not found
func IsKVNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrKVKeyNotFound) || stderrors.Is(err, jetstream.ErrKeyNotFound) ||
		stderrors.Is(err, jetstream.ErrKeyDeleted) {
		return true
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "key not found") ||
		strings.Contains(errMsg, "10037")
}

// Well-known KV errors
var (
	ErrKVKeyNotFound   = stderrors.New("kv: key not found")
	ErrKVValueTooLarge = stderrors.New("kv: value too large")
)
