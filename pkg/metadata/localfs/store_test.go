package localfs

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/marmos91/wormfs/pkg/metadata"
	metadatatesting "github.com/marmos91/wormfs/pkg/metadata/testing"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFSStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			store, err := NewLocalFSStore(context.Background(), LocalFSStoreConfig{Path: t.TempDir()})
			require.NoError(t, err)
			return store
		},
		ManagedCtime:     true,
		ManagedOwnership: true,
	}

	suite.Run(t)
}

func TestLocalFSStore_RequiresPath(t *testing.T) {
	_, err := NewLocalFSStore(context.Background(), LocalFSStoreConfig{})
	assert.Error(t, err)
}

// TestLocalFSStore_CtimeIgnoresMtime verifies backdating mtime does not age
// a file when the platform exposes the real change time.
func TestLocalFSStore_CtimeIgnoresMtime(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("platform ctime not wired on " + runtime.GOOS)
	}

	ctx := context.Background()
	store, err := NewLocalFSStore(ctx, LocalFSStoreConfig{Path: t.TempDir()})
	require.NoError(t, err)

	old := time.Now().Add(-72 * time.Hour)
	attr, err := store.CreateFile(ctx, "/export", "/backdated.txt", &metadata.FileAttr{
		Mode:  0644,
		Mtime: old,
	})
	require.NoError(t, err)

	assert.WithinDuration(t, old, attr.Mtime, time.Second)
	assert.WithinDuration(t, time.Now(), attr.Ctime, time.Minute)
}

func TestLocalFSStore_FallsBackToModTime(t *testing.T) {
	ctx := context.Background()
	store := NewLocalFSStoreWithFs(afero.NewMemMapFs())

	old := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	_, err := store.CreateFile(ctx, "/export", "/a.txt", &metadata.FileAttr{Mode: 0640, Mtime: old})
	require.NoError(t, err)

	attr, err := store.GetAttr(ctx, "/export", "/a.txt")
	require.NoError(t, err)
	assert.True(t, old.Equal(attr.Ctime), "want %v, got %v", old, attr.Ctime)
	assert.Equal(t, uint32(0640), attr.Mode)
}

func TestLocalFSStore_Directory(t *testing.T) {
	ctx := context.Background()
	store := NewLocalFSStoreWithFs(afero.NewMemMapFs())

	_, err := store.CreateFile(ctx, "/export", "/reports", &metadata.FileAttr{
		Type: metadata.FileTypeDirectory,
		Mode: 0755,
	})
	require.NoError(t, err)

	attr, err := store.GetAttr(ctx, "/export", "/reports")
	require.NoError(t, err)
	assert.Equal(t, metadata.FileTypeDirectory, attr.Type)

	_, err = store.CreateFile(ctx, "/export", "/reports", &metadata.FileAttr{Type: metadata.FileTypeDirectory})
	assert.True(t, metadata.IsAlreadyExists(err), "got %v", err)
}

func TestLocalFSStore_ShareCannotEscapeRoot(t *testing.T) {
	assert.Equal(t, "/export/etc/passwd", fsPath("/export", "../../etc/passwd"))
	assert.Equal(t, "/etc/a", fsPath("../etc", "a"))
}
