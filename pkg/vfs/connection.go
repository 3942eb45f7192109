package vfs

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// ConnectionKind is the service type a client attached to.
type ConnectionKind int

const (
	// KindDisk is a regular file share
	KindDisk ConnectionKind = iota

	// KindIPC is the administrative IPC$ channel
	KindIPC

	// KindPrint is a print queue
	KindPrint
)

func (k ConnectionKind) String() string {
	switch k {
	case KindDisk:
		return "disk"
	case KindIPC:
		return "ipc"
	case KindPrint:
		return "print"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseConnectionKind maps a configuration value to a ConnectionKind.
// The empty string selects KindDisk.
func ParseConnectionKind(s string) (ConnectionKind, error) {
	switch strings.ToLower(s) {
	case "", "disk":
		return KindDisk, nil
	case "ipc":
		return KindIPC, nil
	case "print", "printer":
		return KindPrint, nil
	default:
		return 0, fmt.Errorf("unknown connection kind %q", s)
	}
}

// Connection is a client's attachment to one share. It is created by the
// host when a tree connect arrives and is read-only for the layers.
type Connection struct {
	ID          uuid.UUID
	Share       string
	User        string
	UID         uint32
	GID         uint32
	Kind        ConnectionKind
	Params      Params
	ConnectedAt time.Time
}

// NewConnection returns a connection with a fresh ID.
func NewConnection(share, user string, kind ConnectionKind, params Params) *Connection {
	return &Connection{
		ID:          uuid.New(),
		Share:       share,
		User:        user,
		Kind:        kind,
		Params:      params,
		ConnectedAt: time.Now(),
	}
}

// IsAdministrative reports whether this is an IPC connection.
func (c *Connection) IsAdministrative() bool {
	return c.Kind == KindIPC
}

// IsQueue reports whether this is a print queue connection.
func (c *Connection) IsQueue() bool {
	return c.Kind == KindPrint
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s@%s(%s)", c.User, c.Share, c.Kind)
}

// Params is the per-share parametric configuration ("layer.option" keys).
type Params interface {
	// Lookup returns the raw value for key and whether it was set.
	Lookup(key string) (any, bool)
}

// ParamMap is a Params backed by a map. Keys may be flat ("worm.grace_period")
// or nested ({"worm": {"grace_period": ...}}), as decoded from YAML.
// Lookups are case-insensitive.
type ParamMap map[string]any

// Lookup tries key as a flat entry first, then walks it as a dotted path
// through nested maps.
func (m ParamMap) Lookup(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	key = strings.ToLower(key)

	if v, ok := lookupFold(m, key); ok {
		return v, true
	}

	current := map[string]any(m)
	parts := strings.Split(key, ".")
	for i, part := range parts {
		v, ok := lookupFold(current, part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, err := cast.ToStringMapE(v)
		if err != nil {
			return nil, false
		}
		current = next
	}
	return nil, false
}

func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// FloatParam reads a numeric parameter, accepting integers, floats and
// numeric strings. A missing key, or nil params, yields def.
func FloatParam(params Params, key string, def float64) (float64, error) {
	if params == nil {
		return def, nil
	}
	raw, ok := params.Lookup(key)
	if !ok || raw == nil {
		return def, nil
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, &Error{Code: ErrInvalidParameter, Op: "param", Message: fmt.Sprintf("%s: not a number: %v", key, raw), Err: err}
	}
	return v, nil
}

// IntParam is FloatParam for integer parameters.
func IntParam(params Params, key string, def int) (int, error) {
	if params == nil {
		return def, nil
	}
	raw, ok := params.Lookup(key)
	if !ok || raw == nil {
		return def, nil
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return 0, &Error{Code: ErrInvalidParameter, Op: "param", Message: fmt.Sprintf("%s: not an integer: %v", key, raw), Err: err}
	}
	return v, nil
}
