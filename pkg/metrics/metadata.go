package metrics

import "time"

// MetadataMetrics observes calls made against a metadata store.
//
// This interface is optional: stores registered without it are not wrapped
// and pay nothing for collection.
type MetadataMetrics interface {
	// RecordOperation records a completed store call.
	//
	// Parameters:
	//   - store: Configured store name (e.g., "default", "archive-s3")
	//   - storeType: Store implementation (e.g., "memory", "badger", "s3")
	//   - operation: Store method (e.g., "GetAttr", "SetAttr")
	//   - duration: Time taken to complete the call
	//   - err: Error if the call failed, nil if successful
	RecordOperation(store, storeType, operation string, duration time.Duration, err error)
}

// NewNoopMetadataMetrics returns a MetadataMetrics that discards everything.
func NewNoopMetadataMetrics() MetadataMetrics {
	return noopMetadataMetrics{}
}

type noopMetadataMetrics struct{}

func (noopMetadataMetrics) RecordOperation(string, string, string, time.Duration, error) {}
