package workload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.etcd.io/bbolt"

	"github.com/numa-dsu/pkg/compression"
	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/utils"
)

// Cache backend names.
const (
	CacheNone   = "none"
	CacheBolt   = "bbolt"
	CacheBadger = "badger"
)

// Cache stores generated edge lists by Params.Key.
type Cache interface {
	// Get returns the cached edges and whether they were present.
	Get(key string) ([]Edge, bool, error)
	Put(key string, edges []Edge) error
	Close() error
}

// CacheOption configures a persistent cache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	comp compression.Compressor
}

// WithCompressor sets how stored edge lists are compressed. The cache takes
// ownership of c and closes it. The default is zstd.
func WithCompressor(c compression.Compressor) CacheOption {
	return func(o *cacheOptions) {
		o.comp = c
	}
}

func newCacheOptions(opts []CacheOption) cacheOptions {
	var o cacheOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.comp == nil {
		o.comp = compression.Default()
	}
	return o
}

// OpenCache opens the backend named kind at path.
func OpenCache(kind, path string, logger utils.Logger, opts ...CacheOption) (Cache, error) {
	switch kind {
	case "", CacheNone:
		return NopCache{}, nil
	case CacheBolt:
		return OpenBoltCache(path, opts...)
	case CacheBadger:
		return OpenBadgerCache(path, logger, opts...)
	default:
		return nil, apperrors.Newf(apperrors.CodeWorkloadError, "unknown workload cache %q", kind)
	}
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(string) ([]Edge, bool, error) { return nil, false, nil }
func (NopCache) Put(string, []Edge) error         { return nil }
func (NopCache) Close() error                     { return nil }

var edgeBucket = []byte("edges")

// packEdges encodes and compresses edges for storage.
func packEdges(comp compression.Compressor, edges []Edge) ([]byte, error) {
	frame, err := compression.Pack(comp, EncodeEdges(edges))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWorkloadError, "failed to compress edge list", err)
	}
	return frame, nil
}

func unpackEdges(frame []byte) ([]Edge, error) {
	raw, err := compression.Unpack(frame)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWorkloadError, "failed to decompress edge list", err)
	}
	return DecodeEdges(raw)
}

// BoltCache keeps edge lists in one bbolt bucket.
type BoltCache struct {
	db   *bbolt.DB
	comp compression.Compressor
}

// OpenBoltCache opens or creates the bbolt file at path.
func OpenBoltCache(path string, opts ...CacheOption) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWorkloadError, "failed to create cache directory", err)
	}
	db, err := bbolt.Open(path, 0644, &bbolt.Options{
		Timeout:      5 * time.Second,
		NoGrowSync:   true,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWorkloadError, "failed to open bbolt cache", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(edgeBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.CodeWorkloadError, "failed to create edge bucket", err)
	}
	return &BoltCache{db: db, comp: newCacheOptions(opts).comp}, nil
}

// Get implements Cache.
func (c *BoltCache) Get(key string) ([]Edge, bool, error) {
	var edges []Edge
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(edgeBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		// raw is only valid inside the transaction; DecodeEdges copies it.
		var err error
		edges, err = unpackEdges(raw)
		return err
	})
	return edges, found, err
}

// Put implements Cache.
func (c *BoltCache) Put(key string, edges []Edge) error {
	frame, err := packEdges(c.comp, edges)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(edgeBucket).Put([]byte(key), frame)
	})
}

// Close implements Cache.
func (c *BoltCache) Close() error {
	compression.Close(c.comp)
	return c.db.Close()
}

// BadgerCache keeps edge lists in a badger directory. An empty path keeps
// them in memory.
type BadgerCache struct {
	db   *badger.DB
	comp compression.Compressor
}

// OpenBadgerCache opens or creates the badger directory at path.
func OpenBadgerCache(path string, logger utils.Logger, opts ...CacheOption) (*BadgerCache, error) {
	var bopts badger.Options
	if path == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeWorkloadError, "failed to create cache directory", err)
		}
		bopts = badger.DefaultOptions(path)
	}
	bopts = bopts.WithNumVersionsToKeep(1)
	if logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: logger.WithField("component", "badger")})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWorkloadError, "failed to open badger cache", err)
	}
	return &BadgerCache{db: db, comp: newCacheOptions(opts).comp}, nil
}

// Get implements Cache.
func (c *BadgerCache) Get(key string) ([]Edge, bool, error) {
	var edges []Edge
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			var err error
			edges, err = unpackEdges(raw)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return edges, true, nil
}

// Put implements Cache.
func (c *BadgerCache) Put(key string, edges []Edge) error {
	frame, err := packEdges(c.comp, edges)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), frame)
	})
}

// Close implements Cache.
func (c *BadgerCache) Close() error {
	compression.Close(c.comp)
	return c.db.Close()
}

// badgerLogger adapts utils.Logger to badger's logger interface.
type badgerLogger struct {
	logger utils.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(trimNewline(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(trimNewline(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(trimNewline(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(trimNewline(fmt.Sprintf(format, args...)))
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}
