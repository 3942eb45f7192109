package testing

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testShare = "/export"

func (suite *StoreTestSuite) RunFileTests(test *testing.T) {
	test.Run("CreateFile_ThenGetAttr", suite.TestCreateFile_ThenGetAttr)
	test.Run("CreateFile_KeepsExplicitCtime", suite.TestCreateFile_KeepsExplicitCtime)
	test.Run("CreateFile_AlreadyExists", suite.TestCreateFile_AlreadyExists)
	test.Run("GetAttr_NotFound", suite.TestGetAttr_NotFound)
	test.Run("GetAttr_NormalizesPath", suite.TestGetAttr_NormalizesPath)
	test.Run("SharesAreIsolated", suite.TestSharesAreIsolated)
	test.Run("CancelledContext", suite.TestCancelledContext)
}

// TestCreateFile_ThenGetAttr verifies created attributes are returned with timestamps filled.
func (suite *StoreTestSuite) TestCreateFile_ThenGetAttr(test *testing.T) {
	store := suite.newStore(test)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	created, err := store.CreateFile(ctx, testShare, "/docs/a.txt", &metadata.FileAttr{
		Type: metadata.FileTypeRegular,
		Mode: 0644,
		UID:  1000,
		GID:  1000,
	})
	require.NoError(test, err)
	assert.True(test, created.Valid())

	attr, err := store.GetAttr(ctx, testShare, "/docs/a.txt")
	require.NoError(test, err)
	assert.Equal(test, metadata.FileTypeRegular, attr.Type)
	assert.Equal(test, uint32(0644), attr.Mode)
	if !suite.ManagedOwnership {
		assert.Equal(test, uint32(1000), attr.UID)
		assert.Equal(test, uint32(1000), attr.GID)
	}
	assert.True(test, attr.Ctime.After(before), "ctime should be set on create")
}

// TestCreateFile_KeepsExplicitCtime verifies imported files keep their change time.
func (suite *StoreTestSuite) TestCreateFile_KeepsExplicitCtime(test *testing.T) {
	if suite.ManagedCtime {
		test.Skip("store does not accept caller-provided ctime")
	}
	store := suite.newStore(test)
	ctx := context.Background()
	ctime := time.Now().Add(-2 * time.Hour).Truncate(time.Second)

	_, err := store.CreateFile(ctx, testShare, "/old.txt", &metadata.FileAttr{
		Type:  metadata.FileTypeRegular,
		Mode:  0644,
		Mtime: ctime,
		Ctime: ctime,
	})
	require.NoError(test, err)

	attr, err := store.GetAttr(ctx, testShare, "/old.txt")
	require.NoError(test, err)
	assert.WithinDuration(test, ctime, attr.Ctime, time.Second)
}

func (suite *StoreTestSuite) TestCreateFile_AlreadyExists(test *testing.T) {
	store := suite.newStore(test)
	ctx := context.Background()

	_, err := store.CreateFile(ctx, testShare, "/dup.txt", &metadata.FileAttr{Mode: 0644})
	require.NoError(test, err)

	_, err = store.CreateFile(ctx, testShare, "/dup.txt", &metadata.FileAttr{Mode: 0644})
	require.Error(test, err)
	assert.True(test, metadata.IsAlreadyExists(err), "got %v", err)
}

func (suite *StoreTestSuite) TestGetAttr_NotFound(test *testing.T) {
	store := suite.newStore(test)

	_, err := store.GetAttr(context.Background(), testShare, "/missing.txt")
	require.Error(test, err)
	assert.True(test, metadata.IsNotFound(err), "got %v", err)
}

func (suite *StoreTestSuite) TestGetAttr_NormalizesPath(test *testing.T) {
	store := suite.newStore(test)
	ctx := context.Background()

	_, err := store.CreateFile(ctx, testShare, "reports/q1.pdf", &metadata.FileAttr{Mode: 0644})
	require.NoError(test, err)

	_, err = store.GetAttr(ctx, testShare, "/reports/./q1.pdf")
	assert.NoError(test, err)
}

func (suite *StoreTestSuite) TestSharesAreIsolated(test *testing.T) {
	store := suite.newStore(test)
	ctx := context.Background()

	_, err := store.CreateFile(ctx, testShare, "/a.txt", &metadata.FileAttr{Mode: 0644})
	require.NoError(test, err)

	_, err = store.GetAttr(ctx, "/archive", "/a.txt")
	assert.True(test, metadata.IsNotFound(err), "got %v", err)
}

func (suite *StoreTestSuite) TestCancelledContext(test *testing.T) {
	store := suite.newStore(test)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetAttr(ctx, testShare, "/a.txt")
	assert.ErrorIs(test, err, context.Canceled)
}
