// Package snapshot persists the exported prompt corpus as a single JSON
// blob in Redis. The corpus itself stays in memory; the snapshot only
// survives restarts.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// Store reads and writes corpus snapshots via rueidis.
type Store struct {
	client rueidis.Client
	key    string
}

// Config holds connection parameters for the snapshot store.
type Config struct {
	Addrs    []string
	Password string
	Key      string
}

// New creates a snapshot store.
func New(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("snapshot key is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Store{client: client, key: cfg.Key}, nil
}

// Load returns the stored snapshot, or nil when none exists.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	data, err := s.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}

// Save stores the snapshot, replacing any previous one.
func (s *Store) Save(ctx context.Context, data []byte) error {
	if err := s.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Get returns the raw value at key, or nil when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.B().Get().Key(key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Set stores a raw value at key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(key).Value(string(value)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or the timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		cmd := s.client.B().Ping().Build()
		if err := s.client.Do(ctx, cmd).Error(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("snapshot store not ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}
