package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/leverage-engine/internal/domain"
)

const (
	PositionsBucket = "positions"

	DefaultDBPath = "./data/leverage-engine.db"
)

// storedWallet is one wallet's cache entry. A tombstone marks an
// invalidated wallet since the store has no delete.
type storedWallet struct {
	Entry     *domain.WalletPositions `json:"entry,omitempty"`
	Tombstone bool                    `json:"tombstone,omitempty"`
	SavedAt   time.Time               `json:"savedAt"`
}

type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}
	log.Info().Str("path", dbPath).Msg("[PositionStorage] opened database")

	return &Storage{db: db, dbPath: dbPath}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) SaveWallet(entry *domain.WalletPositions) error {
	return s.put(entry.Wallet, storedWallet{Entry: entry, SavedAt: time.Now()})
}

func (s *Storage) DeleteWallet(wallet string) error {
	return s.put(wallet, storedWallet{Tombstone: true, SavedAt: time.Now()})
}

func (s *Storage) put(wallet string, v storedWallet) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet %s: %w", wallet, err)
	}
	return s.db.Set(PositionsBucket, []byte(wallet), data)
}

// SaveBatch writes several wallets in one transaction.
func (s *Storage) SaveBatch(entries []*domain.WalletPositions) error {
	if len(entries) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	now := time.Now()
	for _, entry := range entries {
		data, err := sonic.Marshal(storedWallet{Entry: entry, SavedAt: now})
		if err != nil {
			return fmt.Errorf("failed to marshal wallet %s: %w", entry.Wallet, err)
		}
		value := data
		op := &boltdb.WriteOperation{
			Bucket: []byte(PositionsBucket),
			Key:    []byte(entry.Wallet),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add wallet %s to batch: %w", entry.Wallet, err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(entries)).Msg("[PositionStorage] failed to execute batch")
		return err
	}
	return nil
}

// LoadAll returns every live wallet entry, skipping tombstones and
// undecodable rows.
func (s *Storage) LoadAll() (map[string]*domain.WalletPositions, error) {
	data, err := s.db.List(PositionsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	out := make(map[string]*domain.WalletPositions, len(data))
	failed := 0
	for wallet, value := range data {
		var stored storedWallet
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Error().Str("wallet", wallet).Err(err).Msg("[PositionStorage] failed to unmarshal wallet, skipping")
			failed++
			continue
		}
		if stored.Tombstone || stored.Entry == nil {
			continue
		}
		out[wallet] = stored.Entry
	}

	log.Info().
		Int("total_in_db", len(data)).
		Int("loaded", len(out)).
		Int("failed", failed).
		Msg("[PositionStorage] position cache loaded")
	return out, nil
}
