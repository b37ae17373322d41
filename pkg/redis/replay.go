package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// inFlightTTL bounds how long a claimed key blocks retries when the process
// holding it dies before storing a result.
const inFlightTTL = 2 * time.Minute

// Replay is the stored outcome of an idempotent write. Pending marks a claim
// whose request has not finished yet.
type Replay struct {
	RequestHash string `json:"request_hash"`
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// ReplayKey scopes an Idempotency-Key to the caller and route.
func ReplayKey(callerID, method, path, key string) string {
	return Key("idempotency", callerID, method, path, key)
}

// ClaimReplay reserves key for a new request. When the key is already held it
// returns the existing replay and false.
func (c *Client) ClaimReplay(ctx context.Context, key, requestHash string) (*Replay, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, errNotConnected
	}
	pending, err := json.Marshal(Replay{RequestHash: requestHash, Pending: true})
	if err != nil {
		return nil, false, err
	}
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := c.rdb.SetNX(ctx, key, pending, inFlightTTL).Result()
		if err != nil {
			return nil, false, fmt.Errorf("claim replay: %w", err)
		}
		if ok {
			return nil, true, nil
		}
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, ErrMiss) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("load replay: %w", err)
		}
		var existing Replay
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, false, fmt.Errorf("decode replay: %w", err)
		}
		return &existing, false, nil
	}
	return nil, false, errors.New("claim replay: key churned")
}

// StoreReplay records the final response for a claimed key.
func (c *Client) StoreReplay(ctx context.Context, key string, rec Replay, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return errNotConnected
	}
	rec.Pending = false
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, payload, ttl).Err()
}

// ReleaseReplay drops a claim so the client may retry with the same key.
func (c *Client) ReleaseReplay(ctx context.Context, key string) error {
	return c.Del(ctx, key)
}
