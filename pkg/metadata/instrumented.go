package metadata

import (
	"context"
	"time"

	"github.com/marmos91/wormfs/pkg/metrics"
)

// instrumentedStore records every Store call on a MetadataMetrics sink.
type instrumentedStore struct {
	store     Store
	name      string
	storeType string
	metrics   metrics.MetadataMetrics
}

// Instrument wraps store so that each call is recorded on m under the
// given store name and type. A nil m returns store unchanged.
func Instrument(store Store, name, storeType string, m metrics.MetadataMetrics) Store {
	if m == nil {
		return store
	}
	return &instrumentedStore{store: store, name: name, storeType: storeType, metrics: m}
}

func (s *instrumentedStore) record(op string, start time.Time, err error) {
	s.metrics.RecordOperation(s.name, s.storeType, op, time.Since(start), err)
}

func (s *instrumentedStore) GetAttr(ctx context.Context, share, path string) (*FileAttr, error) {
	start := time.Now()
	attr, err := s.store.GetAttr(ctx, share, path)
	s.record("GetAttr", start, err)
	return attr, err
}

func (s *instrumentedStore) CreateFile(ctx context.Context, share, path string, attr *FileAttr) (*FileAttr, error) {
	start := time.Now()
	created, err := s.store.CreateFile(ctx, share, path, attr)
	s.record("CreateFile", start, err)
	return created, err
}

func (s *instrumentedStore) SetAttr(ctx context.Context, share, path string, attrs *SetAttrs) (*FileAttr, error) {
	start := time.Now()
	attr, err := s.store.SetAttr(ctx, share, path, attrs)
	s.record("SetAttr", start, err)
	return attr, err
}

func (s *instrumentedStore) Remove(ctx context.Context, share, path string) error {
	start := time.Now()
	err := s.store.Remove(ctx, share, path)
	s.record("Remove", start, err)
	return err
}

func (s *instrumentedStore) Healthcheck(ctx context.Context) error {
	start := time.Now()
	err := s.store.Healthcheck(ctx)
	s.record("Healthcheck", start, err)
	return err
}

func (s *instrumentedStore) Close() error {
	return s.store.Close()
}
