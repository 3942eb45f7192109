package worm

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/wormfs/pkg/vfs"
)

// stubSession is the next stage for gate tests. It grants either the
// requested mask or whatever grant returns, and records every call.
type stubSession struct {
	mu sync.Mutex

	grant     func(req *vfs.CreateRequest) vfs.AccessMask
	createErr error
	closeErr  error

	creates      []*vfs.CreateRequest
	closed       []*vfs.FileHandle
	disconnected int
}

func (s *stubSession) CreateFile(ctx context.Context, req *vfs.CreateRequest) (*vfs.FileHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creates = append(s.creates, req)
	if s.createErr != nil {
		return nil, s.createErr
	}

	access := req.Access
	if s.grant != nil {
		access = s.grant(req)
	}
	return vfs.NewFileHandle(req.Path, access, vfs.ActionOpened, req.Existing), nil
}

func (s *stubSession) Close(ctx context.Context, fh *vfs.FileHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = append(s.closed, fh)
	return s.closeErr
}

func (s *stubSession) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disconnected++
	return nil
}

func (s *stubSession) connectFunc() vfs.ConnectFunc {
	return func(ctx context.Context, conn *vfs.Connection) (vfs.Session, error) {
		return s, nil
	}
}

// recordingMetrics counts decisions by name.
type recordingMetrics struct {
	mu        sync.Mutex
	decisions map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{decisions: make(map[string]int)}
}

func (m *recordingMetrics) RecordOpen(string, time.Duration, string) {}
func (m *recordingMetrics) RecordConnect(string)                     {}
func (m *recordingMetrics) RecordDisconnect(string)                  {}

func (m *recordingMetrics) RecordDecision(layer, share, decision string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[layer+"/"+decision]++
}
