package flatindex

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

// snapshotVersion is bumped when the on-disk layout changes.
const snapshotVersion = 1

var (
	metaBucket    = []byte("meta")
	entriesBucket = []byte("entries")

	metaVersionKey   = []byte("version")
	metaDimensionKey = []byte("dimension")
	metaCountKey     = []byte("count")
	metaNextIDKey    = []byte("next_id")
)

// Persist writes a full snapshot of the index to a bbolt file at location.
// The snapshot is written in one transaction, so readers never observe a
// half-written file.
func (idx *Index) Persist(ctx context.Context, location string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	db, err := bolt.Open(location, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("opening snapshot file: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		// Drop stale buckets so the snapshot never mixes generations.
		for _, name := range [][]byte{metaBucket, entriesBucket} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
		}

		meta, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return err
		}
		if err := meta.Put(metaVersionKey, encodeUint64(snapshotVersion)); err != nil {
			return err
		}
		if err := meta.Put(metaDimensionKey, encodeUint64(uint64(idx.dimensions))); err != nil {
			return err
		}
		if err := meta.Put(metaCountKey, encodeUint64(uint64(len(idx.entries)))); err != nil {
			return err
		}
		if err := meta.Put(metaNextIDKey, encodeUint64(idx.nextID)); err != nil {
			return err
		}

		entries, err := tx.CreateBucket(entriesBucket)
		if err != nil {
			return err
		}
		for i, entry := range idx.entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("encoding entry %s: %w", entry.ID, err)
			}
			if err := entries.Put(encodeUint64(uint64(i)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load replaces the index contents with a snapshot previously written by
// Persist. The snapshot is fully decoded and validated before the in-memory
// state is swapped, so a corrupt file leaves the index unchanged.
func (idx *Index) Load(ctx context.Context, location string) error {
	db, err := bolt.Open(location, 0o600, &bolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("opening snapshot file: %w", err)
	}
	defer db.Close()

	var (
		loaded []*domain.IndexEntry
		nextID uint64
	)

	err = db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if meta == nil {
			return fmt.Errorf("%w: snapshot has no meta bucket", domain.ErrIndexCorrupt)
		}

		version, err := decodeUint64(meta.Get(metaVersionKey))
		if err != nil {
			return fmt.Errorf("%w: unreadable snapshot version: %v", domain.ErrIndexCorrupt, err)
		}
		if version != snapshotVersion {
			return fmt.Errorf("%w: unsupported snapshot version %d", domain.ErrIndexCorrupt, version)
		}

		dimension, err := decodeUint64(meta.Get(metaDimensionKey))
		if err != nil {
			return fmt.Errorf("%w: unreadable snapshot dimension: %v", domain.ErrIndexCorrupt, err)
		}
		if int(dimension) != idx.dimensions {
			return fmt.Errorf("%w: snapshot has %d dimensions, index expects %d",
				domain.ErrDimensionMismatch, dimension, idx.dimensions)
		}

		count, err := decodeUint64(meta.Get(metaCountKey))
		if err != nil {
			return fmt.Errorf("%w: unreadable snapshot count: %v", domain.ErrIndexCorrupt, err)
		}

		nextID, err = decodeUint64(meta.Get(metaNextIDKey))
		if err != nil {
			return fmt.Errorf("%w: unreadable snapshot id counter: %v", domain.ErrIndexCorrupt, err)
		}

		entries := tx.Bucket(entriesBucket)
		if entries == nil {
			return fmt.Errorf("%w: snapshot has no entries bucket", domain.ErrIndexCorrupt)
		}

		loaded = make([]*domain.IndexEntry, 0, count)
		cursor := entries.Cursor()
		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry domain.IndexEntry
			if err := json.Unmarshal(value, &entry); err != nil {
				return fmt.Errorf("%w: undecodable entry: %v", domain.ErrIndexCorrupt, err)
			}
			if len(entry.Vector) != idx.dimensions {
				return fmt.Errorf("%w: entry %s vector has %d dimensions, index expects %d",
					domain.ErrIndexCorrupt, entry.ID, len(entry.Vector), idx.dimensions)
			}
			loaded = append(loaded, &entry)
		}

		if uint64(len(loaded)) != count {
			return fmt.Errorf("%w: snapshot declares %d entries, found %d",
				domain.ErrIndexCorrupt, count, len(loaded))
		}
		return nil
	})
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = loaded
	idx.nextID = nextID
	return nil
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeUint64(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
