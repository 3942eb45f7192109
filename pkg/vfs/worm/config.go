package worm

import (
	"fmt"
	"math"
	"time"

	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/marmos91/wormfs/pkg/vfs"
)

const (
	// GracePeriodKey is the share option holding the grace period in seconds.
	GracePeriodKey = "worm.grace_period"

	// DefaultGracePeriod is used when the share does not set GracePeriodKey.
	DefaultGracePeriod = 3600.0
)

// PolicyConfig is the WORM policy of one connection. It is built once when
// the connection attaches and never changes afterwards.
type PolicyConfig struct {
	gracePeriod float64 // seconds, >= 0
}

// NewPolicyConfig reads the grace period from params. Integers, floats and
// numeric strings are accepted; a missing key yields DefaultGracePeriod.
// Negative, NaN and infinite values are rejected with ErrInvalidParameter.
func NewPolicyConfig(params vfs.Params) (*PolicyConfig, error) {
	grace, err := vfs.FloatParam(params, GracePeriodKey, DefaultGracePeriod)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(grace) || math.IsInf(grace, 0) || grace < 0 {
		return nil, &vfs.Error{
			Code:    vfs.ErrInvalidParameter,
			Op:      "connect",
			Message: fmt.Sprintf("%s must be a finite number >= 0, got %v", GracePeriodKey, grace),
		}
	}
	return &PolicyConfig{gracePeriod: grace}, nil
}

// GracePeriod returns the grace period as a duration. Periods too long for
// time.Duration are clamped to its maximum.
func (c *PolicyConfig) GracePeriod() time.Duration {
	nanos := c.gracePeriod * float64(time.Second)
	if nanos >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(nanos)
}

// Age returns how long ago the file's metadata last changed. The change
// time is used, not the modification time, so a chmod or chown restarts the
// clock even though the content is untouched. Invalid attributes have age 0.
func (c *PolicyConfig) Age(attr *metadata.FileAttr, now time.Time) time.Duration {
	if !attr.Valid() {
		return 0
	}
	return now.Sub(attr.Ctime)
}

// IsProtected reports whether the file is past its grace period. Files
// without valid attributes (not yet created) are never protected, and a
// file exactly at the grace period is not protected yet.
func (c *PolicyConfig) IsProtected(attr *metadata.FileAttr, now time.Time) bool {
	if !attr.Valid() {
		return false
	}
	return c.Age(attr, now).Seconds() > c.gracePeriod
}

func (c *PolicyConfig) String() string {
	return fmt.Sprintf("grace_period=%gs", c.gracePeriod)
}
