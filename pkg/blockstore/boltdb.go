package blockstore

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketBlocks = []byte("blocks")
	bucketMeta   = []byte("meta")

	keyRoot      = []byte("root")
	keyNextAlloc = []byte("next_alloc")
)

// BoltBlockStore implements BlockStore on top of a single BoltDB file: one
// bucket per concern, opened with CreateBucketIfNotExists, everything else
// keyed inside db.Update/View.
type BoltBlockStore struct {
	db *bolt.DB
}

// NewBoltBlockStore opens (creating if necessary) a BoltDB file under
// dataDir and prepares its buckets.
func NewBoltBlockStore(dataDir string) (*BoltBlockStore, error) {
	dbPath := filepath.Join(dataDir, "atelier.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketBlocks, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltBlockStore{db: db}, nil
}

// Close closes the database.
func (s *BoltBlockStore) Close() error {
	return s.db.Close()
}

func encodePtr(ptr uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, ptr)
	return buf
}

// Alloc hands out the next pointer in the store's allocation counter,
// persisting the counter before returning so a crash never hands out the
// same pointer twice.
func (s *BoltBlockStore) Alloc() (uint64, error) {
	var ptr uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		raw := meta.Get(keyNextAlloc)
		next := uint64(1)
		if raw != nil {
			next = binary.BigEndian.Uint64(raw)
		}
		ptr = next
		return meta.Put(keyNextAlloc, encodePtr(next+1))
	})
	if err != nil {
		return 0, fmt.Errorf("blockstore: alloc: %w", err)
	}
	return ptr, nil
}

// Read returns the bytes stored at ptr.
func (s *BoltBlockStore) Read(ptr uint64) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		v := b.Get(encodePtr(ptr))
		if v == nil {
			return ErrNotFound
		}
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blockstore: read %d: %w", ptr, err)
	}
	return data, nil
}

// Write stores data at ptr.
func (s *BoltBlockStore) Write(ptr uint64, data []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		return b.Put(encodePtr(ptr), data)
	})
	if err != nil {
		return fmt.Errorf("blockstore: write %d: %w", ptr, err)
	}
	return nil
}

// Delete removes the block at ptr.
func (s *BoltBlockStore) Delete(ptr uint64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		return b.Delete(encodePtr(ptr))
	})
	if err != nil {
		return fmt.Errorf("blockstore: delete %d: %w", ptr, err)
	}
	return nil
}

// ReadRoot returns the store's root record.
func (s *BoltBlockStore) ReadRoot() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		v := meta.Get(keyRoot)
		if v == nil {
			return ErrNotFound
		}
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blockstore: read root: %w", err)
	}
	return data, nil
}

// WriteRoot overwrites the store's root record.
func (s *BoltBlockStore) WriteRoot(data []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		return meta.Put(keyRoot, data)
	})
	if err != nil {
		return fmt.Errorf("blockstore: write root: %w", err)
	}
	return nil
}
