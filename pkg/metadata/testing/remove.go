package testing

import (
	"context"
	"testing"

	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) RunRemoveTests(test *testing.T) {
	test.Run("Remove_Existing", suite.TestRemove_Existing)
	test.Run("Remove_NotFound", suite.TestRemove_NotFound)
}

func (suite *StoreTestSuite) TestRemove_Existing(test *testing.T) {
	store := suite.newStore(test)
	ctx := context.Background()

	_, err := store.CreateFile(ctx, testShare, "/tmp.txt", &metadata.FileAttr{Mode: 0644})
	require.NoError(test, err)

	require.NoError(test, store.Remove(ctx, testShare, "/tmp.txt"))

	_, err = store.GetAttr(ctx, testShare, "/tmp.txt")
	assert.True(test, metadata.IsNotFound(err), "got %v", err)
}

func (suite *StoreTestSuite) TestRemove_NotFound(test *testing.T) {
	store := suite.newStore(test)

	err := store.Remove(context.Background(), testShare, "/never.txt")
	assert.True(test, metadata.IsNotFound(err), "got %v", err)
}

func (suite *StoreTestSuite) RunHealthcheckTests(test *testing.T) {
	test.Run("Healthcheck_Success", suite.TestHealthcheck_Success)
}

// TestHealthcheck_Success verifies that a healthy store passes health checks.
func (suite *StoreTestSuite) TestHealthcheck_Success(test *testing.T) {
	store := suite.newStore(test)

	err := store.Healthcheck(context.Background())

	require.NoError(test, err, "Healthy store should pass health check")
}
