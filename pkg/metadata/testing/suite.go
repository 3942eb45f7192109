package testing

import (
	"testing"

	"github.com/marmos91/wormfs/pkg/metadata"
)

// StoreTestSuite is a conformance suite for metadata.Store implementations.
// It tests the interface contract, not implementation details, so it can be
// run against every store.
type StoreTestSuite struct {
	// NewStore creates a fresh store instance for each test.
	NewStore func(t *testing.T) metadata.Store

	// ManagedCtime marks stores whose change time is kept by the
	// underlying filesystem and cannot be set by the caller.
	ManagedCtime bool

	// ManagedOwnership marks stores that report the host owner instead of
	// the uid/gid passed on create.
	ManagedOwnership bool
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(test *testing.T) {
	test.Run("File", suite.RunFileTests)
	test.Run("SetAttr", suite.RunSetAttrTests)
	test.Run("Remove", suite.RunRemoveTests)
	test.Run("Healthcheck", suite.RunHealthcheckTests)
}

func (suite *StoreTestSuite) newStore(t *testing.T) metadata.Store {
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
