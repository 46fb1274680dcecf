package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/jobrunner/limes/internal/domain"
)

const keyPrefix = "limes:dataset:"

// Valkey is a dataset cache shared between instances through a Valkey
// (Redis compatible) server.
type Valkey struct {
	client valkey.Client
}

// NewValkey connects to the Valkey server at addr.
func NewValkey(addr, password string) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Valkey{client: client}, nil
}

// Get implements output.DatasetCache.
func (v *Valkey) Get(ctx context.Context, key string) (domain.Dataset, bool, error) {
	b, err := v.client.Do(ctx, v.client.B().Get().Key(keyPrefix+key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return domain.Dataset{}, false, nil
	}
	if err != nil {
		return domain.Dataset{}, false, err
	}

	ds, err := decodeDataset(b)
	if err != nil {
		return domain.Dataset{}, false, err
	}
	return ds, true, nil
}

// Set implements output.DatasetCache.
func (v *Valkey) Set(ctx context.Context, ds domain.Dataset, ttl time.Duration) error {
	b, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	cmd := v.client.B().Set().Key(keyPrefix + ds.Key).Value(string(b)).Ex(ttl).Build()
	return v.client.Do(ctx, cmd).Error()
}

// Ping checks the connection.
func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (v *Valkey) Close() {
	v.client.Close()
}

func decodeDataset(b []byte) (domain.Dataset, error) {
	var ds domain.Dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		return domain.Dataset{}, fmt.Errorf("decoding cached dataset: %w", err)
	}
	if ds.Key == "" {
		return domain.Dataset{}, fmt.Errorf("cached dataset without key")
	}
	return ds, nil
}
