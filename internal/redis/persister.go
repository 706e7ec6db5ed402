package redisclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/curalink/patient-booking/internal/store"
)

// SnapshotPersister stores one patient's state blob under a single
// well-known key.
type SnapshotPersister struct {
	client *redis.Client
	key    string
}

// NewSnapshotPersister binds a persister to its storage key.
func NewSnapshotPersister(client *redis.Client, prefix string, patientID uuid.UUID) *SnapshotPersister {
	return &SnapshotPersister{
		client: client,
		key:    fmt.Sprintf("%s:%s", prefix, patientID),
	}
}

func (p *SnapshotPersister) Load(ctx context.Context) ([]byte, error) {
	blob, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", p.key, err)
	}
	return blob, nil
}

func (p *SnapshotPersister) Save(ctx context.Context, blob []byte) error {
	if err := p.client.Set(ctx, p.key, blob, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", p.key, err)
	}
	return nil
}

func (p *SnapshotPersister) Delete(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", p.key, err)
	}
	return nil
}
