package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/wormfs/pkg/metadata"
)

// BadgerMetadataStore implements metadata.Store using BadgerDB for persistence.
//
// It is suitable for shares whose file change times must survive restarts,
// which is what makes WORM aging meaningful in production: a store that
// forgets ctime on restart would silently un-protect every file.
//
// Thread Safety:
// BadgerDB transactions are serializable, so the store needs no locking of
// its own. Read-modify-write operations run inside a single Update txn.
type BadgerMetadataStore struct {
	db *badger.DB
}

// BadgerMetadataStoreConfig contains configuration for creating a BadgerDB metadata store.
type BadgerMetadataStoreConfig struct {
	// DBPath is the directory where BadgerDB will store its files
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database in memory (DBPath is ignored)
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`

	// BadgerOptions allows full customization of BadgerDB behavior.
	// If nil, options are derived from the fields above.
	BadgerOptions *badger.Options `mapstructure:"-"`
}

// NewBadgerMetadataStore opens (or creates) a BadgerDB-backed store.
//
// Context Cancellation:
// The context is checked before the database is opened.
func NewBadgerMetadataStore(ctx context.Context, config BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if !config.InMemory && config.DBPath == "" {
			return nil, fmt.Errorf("badger metadata store: db_path is required")
		}

		if config.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			opts = badger.DefaultOptions(config.DBPath)
		}

		// Metadata entries are small; compression is not worth it
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 64
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 32
		}
		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	store := &BadgerMetadataStore{db: db}

	if err := store.initializeVersion(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// initializeVersion writes the schema version on first open and rejects
// databases written by an incompatible layout.
func (s *BadgerMetadataStore) initializeVersion() error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyVersion))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set([]byte(keyVersion), encodeUint32(schemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		return item.Value(func(val []byte) error {
			version, err := decodeUint32(val)
			if err != nil {
				return err
			}
			if version != schemaVersion {
				return fmt.Errorf("unsupported metadata schema version %d (want %d)", version, schemaVersion)
			}
			return nil
		})
	})
}

// GetAttr returns the attributes stored under the file key for path.
//
// Context Cancellation:
// Checked once before the read transaction starts.
func (s *BadgerMetadataStore) GetAttr(ctx context.Context, share, path string) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, path); err != nil {
		return nil, err
	}

	var attr *metadata.FileAttr
	err := s.db.View(func(txn *badger.Txn) error {
		fd, err := getFileData(txn, share, path)
		if err != nil {
			return err
		}
		attr = fd.Attr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attr, nil
}

// CreateFile stores a new entry for path in a single update transaction.
//
// The existence check and the write share the transaction, so two
// concurrent creates of the same path cannot both succeed: badger aborts
// the later commit with a conflict.
//
// Returns the stored attributes, with unset timestamps filled in.
func (s *BadgerMetadataStore) CreateFile(ctx context.Context, share, path string, attr *metadata.FileAttr) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, path); err != nil {
		return nil, err
	}
	if attr == nil {
		return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "attributes are required", Path: path}
	}

	stored := attr.Clone()
	stored.FillTimestamps(time.Now())
	clean := metadata.CleanPath(path)

	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(keyFile(share, clean))
		if err == nil {
			return metadata.NewAlreadyExistsError(clean)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check file %s: %w", clean, err)
		}

		return putFileData(txn, &fileData{Attr: stored, ShareName: share, Path: clean})
	})
	if err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

// SetAttr applies attrs as a read-modify-write inside one transaction.
// Non-empty changes bump Ctime.
func (s *BadgerMetadataStore) SetAttr(ctx context.Context, share, path string, attrs *metadata.SetAttrs) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, path); err != nil {
		return nil, err
	}

	var result *metadata.FileAttr
	err := s.db.Update(func(txn *badger.Txn) error {
		fd, err := getFileData(txn, share, path)
		if err != nil {
			return err
		}

		if attrs.IsEmpty() {
			result = fd.Attr
			return nil
		}

		attrs.Apply(fd.Attr, time.Now())
		result = fd.Attr
		return putFileData(txn, fd)
	})
	if err != nil {
		return nil, err
	}
	return result.Clone(), nil
}

// Remove deletes the file key. Returns NotFound if it does not exist.
func (s *BadgerMetadataStore) Remove(ctx context.Context, share, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateLocation(share, path); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := getFileData(txn, share, path); err != nil {
			return err
		}
		return txn.Delete(keyFile(share, path))
	})
}

// Healthcheck verifies the database accepts transactions.
func (s *BadgerMetadataStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyVersion))
		return err
	})
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// Close closes the database. The store must not be used afterwards.
func (s *BadgerMetadataStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

func getFileData(txn *badger.Txn, share, path string) (*fileData, error) {
	item, err := txn.Get(keyFile(share, path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, metadata.NewNotFoundError(metadata.CleanPath(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", path, err)
	}

	var fd *fileData
	err = item.Value(func(val []byte) error {
		fd, err = decodeFileData(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fd, nil
}

func putFileData(txn *badger.Txn, fd *fileData) error {
	data, err := encodeFileData(fd)
	if err != nil {
		return err
	}
	return txn.Set(keyFile(fd.ShareName, fd.Path), data)
}
