package memory

import (
	"context"
	"testing"

	"github.com/marmos91/wormfs/pkg/metadata"
	metadatatesting "github.com/marmos91/wormfs/pkg/metadata/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryMetadataStore runs the complete Store test suite
// against the MemoryMetadataStore implementation.
func TestMemoryMetadataStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			return NewMemoryMetadataStoreWithDefaults()
		},
	}

	suite.Run(t)
}

func TestMemoryMetadataStore_MaxFiles(t *testing.T) {
	store := NewMemoryMetadataStore(MemoryMetadataStoreConfig{MaxFiles: 1})
	ctx := context.Background()

	_, err := store.CreateFile(ctx, "/export", "/a", &metadata.FileAttr{Mode: 0644})
	require.NoError(t, err)

	_, err = store.CreateFile(ctx, "/export", "/b", &metadata.FileAttr{Mode: 0644})
	code, ok := metadata.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, metadata.ErrIOError, code)
}

func TestMemoryMetadataStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryMetadataStoreWithDefaults()
	ctx := context.Background()

	_, err := store.CreateFile(ctx, "/export", "/a", &metadata.FileAttr{Mode: 0644})
	require.NoError(t, err)

	attr, err := store.GetAttr(ctx, "/export", "/a")
	require.NoError(t, err)
	attr.Mode = 0777

	again, err := store.GetAttr(ctx, "/export", "/a")
	require.NoError(t, err)
	assert.Equal(t, uint32(0644), again.Mode)
}
