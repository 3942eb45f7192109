package badger

import (
	"context"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/wormfs/pkg/metadata"
	metadatatesting "github.com/marmos91/wormfs/pkg/metadata/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerMetadataStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			store, err := NewBadgerMetadataStore(context.Background(), BadgerMetadataStoreConfig{
				InMemory: true,
			})
			require.NoError(t, err)
			return store
		},
	}

	suite.Run(t)
}

// TestBadgerMetadataStore_PersistsCtime verifies change times survive a reopen,
// so files stay protected across restarts.
func TestBadgerMetadataStore_PersistsCtime(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	ctime := time.Now().Add(-48 * time.Hour).Truncate(time.Second)

	store, err := NewBadgerMetadataStore(ctx, BadgerMetadataStoreConfig{DBPath: dir})
	require.NoError(t, err)

	_, err = store.CreateFile(ctx, "/archive", "/2024/ledger.csv", &metadata.FileAttr{
		Type:  metadata.FileTypeRegular,
		Mode:  0440,
		Ctime: ctime,
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewBadgerMetadataStore(ctx, BadgerMetadataStoreConfig{DBPath: dir})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	attr, err := reopened.GetAttr(ctx, "/archive", "/2024/ledger.csv")
	require.NoError(t, err)
	assert.True(t, ctime.Equal(attr.Ctime), "want %v, got %v", ctime, attr.Ctime)
	assert.Equal(t, uint32(0440), attr.Mode)
}

func TestBadgerMetadataStore_RequiresPath(t *testing.T) {
	_, err := NewBadgerMetadataStore(context.Background(), BadgerMetadataStoreConfig{})
	assert.Error(t, err)
}

func TestBadgerMetadataStore_RejectsOtherSchema(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := badgerdb.Open(badgerdb.DefaultOptions(dir).WithLoggingLevel(badgerdb.WARNING))
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keyVersion), encodeUint32(schemaVersion+1))
	}))
	require.NoError(t, db.Close())

	_, err = NewBadgerMetadataStore(ctx, BadgerMetadataStoreConfig{DBPath: dir})
	assert.ErrorContains(t, err, "unsupported metadata schema version")
}

func TestDecodeFileData_MissingAttr(t *testing.T) {
	_, err := decodeFileData([]byte(`{"share_name":"/export","path":"/a"}`))
	assert.Error(t, err)
}
