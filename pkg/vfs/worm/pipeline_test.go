package worm_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/marmos91/wormfs/pkg/metadata/memory"
	"github.com/marmos91/wormfs/pkg/vfs"
	"github.com/marmos91/wormfs/pkg/vfs/storage"
	"github.com/marmos91/wormfs/pkg/vfs/worm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const share = "/archive"

// newTree builds worm -> storage -> memory store and connects uid 1000.
func newTree(t *testing.T, store metadata.Store, params vfs.ParamMap) *vfs.Tree {
	t.Helper()

	pipeline := vfs.NewPipeline(storage.New(store), []vfs.Layer{worm.New()})
	conn := vfs.NewConnection(share, "alice", vfs.KindDisk, params)
	conn.UID, conn.GID = 1000, 1000

	tree, err := pipeline.Connect(context.Background(), conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Disconnect(context.Background()) })
	return tree
}

func seed(t *testing.T, store metadata.Store, path string, mode uint32, age time.Duration) {
	t.Helper()
	changed := time.Now().Add(-age)
	_, err := store.CreateFile(context.Background(), share, path, &metadata.FileAttr{
		Type:  metadata.FileTypeRegular,
		Mode:  mode,
		UID:   1000,
		GID:   1000,
		Size:  100,
		Mtime: changed,
		Ctime: changed,
	})
	require.NoError(t, err)
}

func TestPipeline_AgedFileIsReadOnly(t *testing.T) {
	store := memory.NewMemoryMetadataStoreWithDefaults()
	seed(t, store, "/2025/report.pdf", 0644, 2*time.Hour)
	tree := newTree(t, store, vfs.ParamMap{"worm": map[string]any{"grace_period": 3600}})
	ctx := context.Background()

	fh, err := tree.Open(ctx, "/2025/report.pdf", vfs.FileReadData, vfs.DispositionOpen, 0)
	require.NoError(t, err)
	require.NoError(t, tree.Close(ctx, fh))

	for _, access := range []vfs.AccessMask{vfs.FileWriteData, vfs.Delete, vfs.WriteDAC} {
		_, err = tree.Open(ctx, "/2025/report.pdf", access, vfs.DispositionOpen, 0)
		assert.True(t, vfs.IsCode(err, vfs.ErrAccessDenied), "%s: got %v", access, err)
	}

	// Overwrite implies write-data even when the mask does not name it.
	_, err = tree.Open(ctx, "/2025/report.pdf", vfs.FileReadData, vfs.DispositionOverwrite, 0)
	assert.True(t, vfs.IsCode(err, vfs.ErrAccessDenied), "got %v", err)

	attr, err := store.GetAttr(ctx, share, "/2025/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), attr.Size, "protected file must not be truncated")
}

// TestPipeline_MaximumAllowedOnOwnedFile exercises the post-open check with
// the real storage layer: the owner of a 0444 file is still granted
// write-attributes, so MAXIMUM_ALLOWED must be refused on an aged file.
func TestPipeline_MaximumAllowedOnOwnedFile(t *testing.T) {
	store := memory.NewMemoryMetadataStoreWithDefaults()
	seed(t, store, "/sealed.txt", 0444, 2*time.Hour)
	seed(t, store, "/fresh.txt", 0444, time.Minute)
	tree := newTree(t, store, vfs.ParamMap{worm.GracePeriodKey: 3600})
	ctx := context.Background()

	_, err := tree.Open(ctx, "/sealed.txt", vfs.MaximumAllowed, vfs.DispositionOpen, 0)
	assert.True(t, vfs.IsCode(err, vfs.ErrAccessDenied), "got %v", err)
	assert.Empty(t, tree.OpenHandles())

	fh, err := tree.Open(ctx, "/fresh.txt", vfs.MaximumAllowed, vfs.DispositionOpen, 0)
	require.NoError(t, err)
	assert.True(t, fh.Access.Contains(vfs.FileWriteAttributes|vfs.WriteDAC))
}

func TestPipeline_GenericWriteOnAgedFile(t *testing.T) {
	store := memory.NewMemoryMetadataStoreWithDefaults()
	seed(t, store, "/ledger.csv", 0664, 2*time.Hour)
	tree := newTree(t, store, vfs.ParamMap{worm.GracePeriodKey: 3600})

	_, err := tree.Open(context.Background(), "/ledger.csv", vfs.GenericWrite, vfs.DispositionOpen, 0)
	assert.True(t, vfs.IsCode(err, vfs.ErrAccessDenied), "got %v", err)
	assert.Empty(t, tree.OpenHandles())
}

// TestPipeline_ChmodRestartsGracePeriod documents that an administrative
// attribute change refreshes ctime and lifts protection.
func TestPipeline_ChmodRestartsGracePeriod(t *testing.T) {
	store := memory.NewMemoryMetadataStoreWithDefaults()
	seed(t, store, "/policy.doc", 0644, 2*time.Hour)
	tree := newTree(t, store, vfs.ParamMap{worm.GracePeriodKey: 3600})
	ctx := context.Background()

	_, err := tree.Open(ctx, "/policy.doc", vfs.FileWriteData, vfs.DispositionOpen, 0)
	require.True(t, vfs.IsCode(err, vfs.ErrAccessDenied), "got %v", err)

	_, err = store.SetAttr(ctx, share, "/policy.doc", &metadata.SetAttrs{Mode: metadata.Uint32Ptr(0640)})
	require.NoError(t, err)

	_, err = tree.Open(ctx, "/policy.doc", vfs.FileWriteData, vfs.DispositionOpen, 0)
	assert.NoError(t, err)
}

func TestPipeline_CreateThenZeroGrace(t *testing.T) {
	store := memory.NewMemoryMetadataStoreWithDefaults()
	tree := newTree(t, store, vfs.ParamMap{worm.GracePeriodKey: 0})
	ctx := context.Background()

	fh, err := tree.Open(ctx, "/drop/new.bin", vfs.FileWriteData|vfs.FileAppendData, vfs.DispositionCreate, 0600)
	require.NoError(t, err)
	assert.Equal(t, vfs.ActionCreated, fh.Action)
	require.NoError(t, tree.Close(ctx, fh))

	time.Sleep(5 * time.Millisecond)

	_, err = tree.Open(ctx, "/drop/new.bin", vfs.FileAppendData, vfs.DispositionOpen, 0)
	assert.True(t, vfs.IsCode(err, vfs.ErrAccessDenied), "got %v", err)
}

// TestLayer_OverwriteOverStorageKeepsData drives the layer's session
// directly over the storage backend, without a Tree adjusting the request.
func TestLayer_OverwriteOverStorageKeepsData(t *testing.T) {
	store := memory.NewMemoryMetadataStoreWithDefaults()
	seed(t, store, "/sealed.bin", 0644, 2*time.Hour)
	ctx := context.Background()

	conn := vfs.NewConnection(share, "alice", vfs.KindDisk, vfs.ParamMap{worm.GracePeriodKey: 3600})
	conn.UID, conn.GID = 1000, 1000

	session, err := worm.New().Connect(ctx, conn, storage.New(store).Connect)
	require.NoError(t, err)
	defer func() { _ = session.Disconnect(ctx) }()

	before, err := store.GetAttr(ctx, share, "/sealed.bin")
	require.NoError(t, err)

	for _, disposition := range []vfs.Disposition{vfs.DispositionOverwrite, vfs.DispositionOverwriteIf, vfs.DispositionSupersede} {
		_, err = session.CreateFile(ctx, &vfs.CreateRequest{
			Path:        "/sealed.bin",
			Access:      vfs.FileReadData,
			Disposition: disposition,
			Existing:    before,
		})
		assert.True(t, vfs.IsCode(err, vfs.ErrAccessDenied), "%s: got %v", disposition, err)
	}

	after, err := store.GetAttr(ctx, share, "/sealed.bin")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), after.Size)
	assert.True(t, after.Ctime.Equal(before.Ctime), "ctime must not move")
}

// TestPipeline_ConcurrentOpens runs many clients' worth of opens through one
// tree at once; run with -race.
func TestPipeline_ConcurrentOpens(t *testing.T) {
	store := memory.NewMemoryMetadataStoreWithDefaults()
	seed(t, store, "/sealed.txt", 0644, 2*time.Hour)
	tree := newTree(t, store, vfs.ParamMap{worm.GracePeriodKey: 3600})
	ctx := context.Background()

	const workers = 16
	const rounds = 25

	var wg sync.WaitGroup
	errs := make(chan error, workers*rounds*3)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				fh, err := tree.Open(ctx, "/sealed.txt", vfs.FileReadData, vfs.DispositionOpen, 0)
				if err != nil {
					errs <- fmt.Errorf("read sealed: %w", err)
					continue
				}
				if err := tree.Close(ctx, fh); err != nil {
					errs <- fmt.Errorf("close sealed: %w", err)
				}

				if _, err := tree.Open(ctx, "/sealed.txt", vfs.FileWriteData, vfs.DispositionOpen, 0); !vfs.IsCode(err, vfs.ErrAccessDenied) {
					errs <- fmt.Errorf("write sealed: want access denied, got %v", err)
				}

				path := fmt.Sprintf("/w%d/%d.txt", w, i)
				fh, err = tree.Open(ctx, path, vfs.FileWriteData, vfs.DispositionCreate, 0600)
				if err != nil {
					errs <- fmt.Errorf("create %s: %w", path, err)
					continue
				}
				if err := tree.Close(ctx, fh); err != nil {
					errs <- fmt.Errorf("close %s: %w", path, err)
				}
			}
		}(w)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Empty(t, tree.OpenHandles())

	attr, err := store.GetAttr(ctx, share, "/sealed.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), attr.Size)
}
