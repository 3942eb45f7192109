package testing

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) RunSetAttrTests(test *testing.T) {
	test.Run("SetAttr_ModeBumpsCtime", suite.TestSetAttr_ModeBumpsCtime)
	test.Run("SetAttr_Truncate", suite.TestSetAttr_Truncate)
	test.Run("SetAttr_Empty", suite.TestSetAttr_Empty)
	test.Run("SetAttr_NotFound", suite.TestSetAttr_NotFound)
}

// TestSetAttr_ModeBumpsCtime verifies a permission change refreshes the change time.
func (suite *StoreTestSuite) TestSetAttr_ModeBumpsCtime(test *testing.T) {
	store := suite.newStore(test)
	ctx := context.Background()
	old := time.Now().Add(-3 * time.Hour)

	_, err := store.CreateFile(ctx, testShare, "/sealed.txt", &metadata.FileAttr{
		Type:  metadata.FileTypeRegular,
		Mode:  0644,
		Mtime: old,
		Ctime: old,
	})
	require.NoError(test, err)

	attr, err := store.SetAttr(ctx, testShare, "/sealed.txt", &metadata.SetAttrs{
		Mode: metadata.Uint32Ptr(0444),
	})
	require.NoError(test, err)
	assert.Equal(test, uint32(0444), attr.Mode)
	assert.True(test, attr.Ctime.After(old.Add(time.Hour)), "ctime should be refreshed, got %v", attr.Ctime)

	reread, err := store.GetAttr(ctx, testShare, "/sealed.txt")
	require.NoError(test, err)
	assert.Equal(test, uint32(0444), reread.Mode)
}

func (suite *StoreTestSuite) TestSetAttr_Truncate(test *testing.T) {
	store := suite.newStore(test)
	ctx := context.Background()

	_, err := store.CreateFile(ctx, testShare, "/data.bin", &metadata.FileAttr{Mode: 0644, Size: 0})
	require.NoError(test, err)

	attr, err := store.SetAttr(ctx, testShare, "/data.bin", &metadata.SetAttrs{
		Size: metadata.Uint64Ptr(0),
	})
	require.NoError(test, err)
	assert.Equal(test, uint64(0), attr.Size)
}

func (suite *StoreTestSuite) TestSetAttr_Empty(test *testing.T) {
	if suite.ManagedCtime {
		test.Skip("store does not accept caller-provided ctime")
	}
	store := suite.newStore(test)
	ctx := context.Background()
	old := time.Now().Add(-time.Hour).Truncate(time.Second)

	_, err := store.CreateFile(ctx, testShare, "/same.txt", &metadata.FileAttr{Mode: 0600, Mtime: old, Ctime: old})
	require.NoError(test, err)

	attr, err := store.SetAttr(ctx, testShare, "/same.txt", &metadata.SetAttrs{})
	require.NoError(test, err)
	assert.WithinDuration(test, old, attr.Ctime, time.Second)
}

func (suite *StoreTestSuite) TestSetAttr_NotFound(test *testing.T) {
	store := suite.newStore(test)

	_, err := store.SetAttr(context.Background(), testShare, "/nope", &metadata.SetAttrs{
		Mode: metadata.Uint32Ptr(0600),
	})
	assert.True(test, metadata.IsNotFound(err), "got %v", err)
}
