// Package badgercache implémente le cache de réponses du catalogue sur une instance
// Badger en mémoire : sa durée de vie est celle du process, comme un stockage de session.
package badgercache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const (
	DefaultTTL = time.Hour

	// MaxEntryBytes est la plus grosse valeur qu'une instance Badger en mémoire accepte
	// (1 MiB, en-tête compris). Le quota configuré est ramené à cette borne.
	MaxEntryBytes = 1<<20 - headerSize

	// DefaultMaxEntryBytes joue le rôle du quota : une valeur plus grosse est refusée (et ignorée).
	DefaultMaxEntryBytes = MaxEntryBytes

	// Limite de taille des clés imposée par Badger.
	maxKeyBytes = 65000
)

var (
	ErrEntryTooLarge = errors.New("cache entry exceeds quota")
	ErrInvalidKey    = errors.New("cache key empty or too large")
)

type Options struct {
	TTL           time.Duration
	MaxEntryBytes int
	Now           func() time.Time
}

type Cache struct {
	db     *badger.DB
	logger zerolog.Logger
	ttl    time.Duration
	max    int
	now    func() time.Time
}

// Une valeur est stockée telle quelle, préfixée par storedAt (epoch ms, 8 octets big-endian).
const headerSize = 8

func encode(storedAt int64, data []byte) []byte {
	b := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint64(b[:headerSize], uint64(storedAt))
	copy(b[headerSize:], data)
	return b
}

func decode(b []byte) (int64, []byte, error) {
	if len(b) < headerSize {
		return 0, nil, errors.New("corrupted cache entry")
	}
	data := make([]byte, len(b)-headerSize)
	copy(data, b[headerSize:])
	return int64(binary.BigEndian.Uint64(b[:headerSize])), data, nil
}

func Open(logger zerolog.Logger, opts Options) (*Cache, error) {
	bopts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}

	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntryBytes <= 0 || opts.MaxEntryBytes > MaxEntryBytes {
		opts.MaxEntryBytes = DefaultMaxEntryBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{db: db, logger: logger.With().Str("component", "cache").Logger(), ttl: opts.TTL, max: opts.MaxEntryBytes, now: opts.Now}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get renvoie la valeur si elle a été stockée il y a au plus TTL.
// Une entrée périmée est supprimée immédiatement.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	var (
		storedAt int64
		data     []byte
	)
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			storedAt, data, err = decode(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false
	}
	if err != nil {
		// Entrée illisible : on la traite comme absente.
		c.logger.Debug().Err(err).Str("key", key).Msg("cache read failed")
		c.evict(key)
		return nil, false
	}

	age := c.now().Sub(time.UnixMilli(storedAt))
	if age > c.ttl {
		c.evict(key)
		return nil, false
	}
	return data, true
}

// Set ne remonte jamais d'erreur : le cache est une optimisation.
// Une écriture refusée retire l'ancienne valeur, qui ne correspond plus à la dernière réponse.
func (c *Cache) Set(ctx context.Context, key string, value []byte) {
	err := c.set(ctx, key, value)
	if err == nil {
		return
	}
	// Pas de err.Error() brut : Badger y met un dump hexadécimal de la valeur.
	evt := c.logger.Warn().Int("key_size", len(key)).Int("size", len(value))
	if errors.Is(err, ErrEntryTooLarge) || errors.Is(err, ErrInvalidKey) {
		evt.Str("reason", err.Error())
	} else {
		evt.Str("reason", "storage write failed")
	}
	if len(key) > 0 && len(key) <= maxKeyBytes {
		evt.Str("key", key)
		c.evict(key)
	}
	evt.Msg("cache write dropped")
}

func (c *Cache) set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(key) == 0 || len(key) > maxKeyBytes {
		return ErrInvalidKey
	}
	if len(value) > c.max {
		return ErrEntryTooLarge
	}
	b := encode(c.now().UnixMilli(), value)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), b)
	})
}

func (c *Cache) evict(key string) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache evict failed")
	}
}

// count compte les clés présentes (y compris périmées non encore relues).
func (c *Cache) count() int {
	n := 0
	_ = c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}
