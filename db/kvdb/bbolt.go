package kvdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meghashyamc/searchbox/logger"
	bolt "go.etcd.io/bbolt"
)

type BoltDB struct {
	store  *bolt.DB
	logger logger.Logger
}

func New(logger logger.Logger, kvDBPath string) (*BoltDB, error) {
	if err := os.MkdirAll(filepath.Dir(kvDBPath), 0755); err != nil {
		logger.Error("failed to create key-value database directory", "err", err.Error(), "path", kvDBPath)
		return nil, fmt.Errorf("failed to create key-value database directory: %w", err)
	}

	store, err := bolt.Open(kvDBPath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		logger.Error("failed to open database", "err", err.Error(), "path", kvDBPath)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	boltDB := &BoltDB{
		store:  store,
		logger: logger,
	}

	if err := boltDB.initBuckets(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return boltDB, nil
}

func (b *BoltDB) initBuckets() error {
	return b.store.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				b.logger.Error("failed to create bucket", "bucket", bucket, "err", err.Error())
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

func (b *BoltDB) Set(bucketName string, key string, value string) error {
	if key == "" {
		b.logger.Error("key cannot be empty", "key", key)
		return &InvalidKeyError{
			Key:    key,
			Reason: "key cannot be empty",
		}
	}

	return b.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			b.logger.Error("bucket not found", "bucket", bucketName)
			return fmt.Errorf("bucket not found: %s", bucketName)
		}

		if err := bucket.Put([]byte(key), []byte(value)); err != nil {
			b.logger.Error("failed to set key", "key", key, "err", err.Error())
			return fmt.Errorf("failed to set key %s: %w", key, err)
		}

		return nil
	})
}

func (b *BoltDB) Get(bucketName string, key string) (string, error) {
	if key == "" {
		b.logger.Error("key cannot be empty", "key", key)
		return "", &InvalidKeyError{
			Key:    key,
			Reason: "key cannot be empty",
		}
	}

	var value []byte
	err := b.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			b.logger.Error("bucket not found", "bucket", bucketName)
			return fmt.Errorf("bucket not found: %s", bucketName)
		}

		v := bucket.Get([]byte(key))
		if v == nil {
			return &NotFoundError{Key: key}
		}

		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})

	if err != nil {
		if notFoundErr, ok := err.(*NotFoundError); ok {
			b.logger.Debug("key not found", "key", key)
			return "", notFoundErr
		}
		return "", err
	}

	return string(value), nil
}

func (b *BoltDB) Delete(bucketName string, key string) error {
	if key == "" {
		b.logger.Error("key cannot be empty", "key", key)
		return &InvalidKeyError{
			Key:    key,
			Reason: "key cannot be empty",
		}
	}

	return b.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			b.logger.Error("bucket not found", "bucket", bucketName)
			return fmt.Errorf("bucket not found: %s", bucketName)
		}

		if err := bucket.Delete([]byte(key)); err != nil {
			b.logger.Error("failed to delete key", "key", key, "err", err.Error())
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}

		return nil
	})
}

// GetAllKeys returns the bucket's keys in byte-sorted order.
func (b *BoltDB) GetAllKeys(bucketName string) ([]string, error) {
	var keys []string
	err := b.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			b.logger.Error("bucket not found", "bucket", bucketName)
			return fmt.Errorf("bucket not found: %s", bucketName)
		}

		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

func (b *BoltDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
