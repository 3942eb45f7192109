package vfs

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/wormfs/pkg/metadata"
)

// Disposition says what to do when the target does or does not exist
// (SMB2 CreateDisposition).
type Disposition int

const (
	// DispositionSupersede replaces an existing file, creates otherwise
	DispositionSupersede Disposition = iota
	// DispositionOpen opens an existing file, fails otherwise
	DispositionOpen
	// DispositionCreate creates a new file, fails if it exists
	DispositionCreate
	// DispositionOpenIf opens an existing file, creates otherwise
	DispositionOpenIf
	// DispositionOverwrite truncates an existing file, fails otherwise
	DispositionOverwrite
	// DispositionOverwriteIf truncates an existing file, creates otherwise
	DispositionOverwriteIf
)

var dispositionNames = []string{"supersede", "open", "create", "open_if", "overwrite", "overwrite_if"}

func (d Disposition) String() string {
	if int(d) >= 0 && int(d) < len(dispositionNames) {
		return dispositionNames[d]
	}
	return fmt.Sprintf("disposition(%d)", int(d))
}

// ParseDisposition accepts the names printed by Disposition.String, with
// or without the underscore.
func ParseDisposition(s string) (Disposition, error) {
	name := strings.ToLower(strings.ReplaceAll(s, "-", "_"))
	for i, n := range dispositionNames {
		if name == n || name == strings.ReplaceAll(n, "_", "") {
			return Disposition(i), nil
		}
	}
	return 0, fmt.Errorf("unknown disposition %q", s)
}

// CreatesWhenMissing reports whether the disposition creates a missing file.
func (d Disposition) CreatesWhenMissing() bool {
	switch d {
	case DispositionSupersede, DispositionCreate, DispositionOpenIf, DispositionOverwriteIf:
		return true
	default:
		return false
	}
}

// Truncates reports whether the disposition discards existing content.
func (d Disposition) Truncates() bool {
	switch d {
	case DispositionSupersede, DispositionOverwrite, DispositionOverwriteIf:
		return true
	default:
		return false
	}
}

// CreateAction is what the open did to the file.
type CreateAction int

const (
	ActionOpened CreateAction = iota
	ActionCreated
	ActionOverwritten
	ActionSuperseded
)

func (a CreateAction) String() string {
	switch a {
	case ActionOpened:
		return "opened"
	case ActionCreated:
		return "created"
	case ActionOverwritten:
		return "overwritten"
	case ActionSuperseded:
		return "superseded"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// CreateRequest is a single open/create call travelling down the pipeline.
type CreateRequest struct {
	// Path is share-relative
	Path string

	// Access is the requested access mask as sent by the client
	Access AccessMask

	Disposition Disposition

	// Mode is the permission bits for a newly created file (0 = default)
	Mode uint32

	// Existing is the file's attributes when it already exists, nil otherwise.
	// Ctime is the last metadata change, which is what file age is measured from.
	Existing *metadata.FileAttr
}

// EffectiveAccess returns the rights the request needs. Truncating an
// existing file is a data write whatever the mask says, so FileWriteData is
// added for a truncating disposition when Existing is set.
//
// Layers deciding on write intent must use this rather than Access.
func (r *CreateRequest) EffectiveAccess() AccessMask {
	if r.Existing != nil && r.Disposition.Truncates() {
		return r.Access | FileWriteData
	}
	return r.Access
}

func (r *CreateRequest) String() string {
	return fmt.Sprintf("path=%s access=%s disposition=%s", r.Path, r.Access, r.Disposition)
}

// FileHandle is an open file. Access is the effective granted mask, which
// may hold rights the request never named (MaximumAllowed, generic rights).
type FileHandle struct {
	ID       uuid.UUID
	Path     string
	Access   AccessMask
	Action   CreateAction
	Attr     *metadata.FileAttr
	OpenedAt time.Time
}

// NewFileHandle returns a handle with a fresh ID.
func NewFileHandle(path string, access AccessMask, action CreateAction, attr *metadata.FileAttr) *FileHandle {
	return &FileHandle{
		ID:       uuid.New(),
		Path:     path,
		Access:   access,
		Action:   action,
		Attr:     attr,
		OpenedAt: time.Now(),
	}
}
