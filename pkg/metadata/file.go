package metadata

import (
	"time"
)

// FileAttr contains the metadata a store keeps for a file or directory.
//
// Time Semantics:
//   - Atime (access time): Updated when file is read
//   - Mtime (modification time): Updated when file content changes
//   - Ctime (change time): Updated when metadata changes (size, permissions, ownership)
//
// Ctime is not "creation time". It is the timestamp WORM aging is measured
// against: a file's content never changes after it is sealed, so the last
// attribute change is what starts the clock.
type FileAttr struct {
	// Type is the file type (regular, directory, symlink, etc.)
	Type FileType `json:"type"`

	// Mode contains Unix permission bits (0o7777 max)
	Mode uint32 `json:"mode"`

	// UID is the owner user ID
	UID uint32 `json:"uid"`

	// GID is the owner group ID
	GID uint32 `json:"gid"`

	// Size is the file size in bytes
	Size uint64 `json:"size"`

	// Atime is the last access time
	Atime time.Time `json:"atime"`

	// Mtime is the last modification time (content changes)
	Mtime time.Time `json:"mtime"`

	// Ctime is the last change time (metadata changes)
	Ctime time.Time `json:"ctime"`
}

// Valid reports whether the record can be used to age the file.
// A nil record or one without a change time describes a file that does not
// exist yet.
func (a *FileAttr) Valid() bool {
	return a != nil && !a.Ctime.IsZero()
}

// Clone returns a copy safe to hand out across store boundaries.
func (a *FileAttr) Clone() *FileAttr {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// FillTimestamps sets any zero timestamp to now.
func (a *FileAttr) FillTimestamps(now time.Time) {
	if a.Atime.IsZero() {
		a.Atime = now
	}
	if a.Mtime.IsZero() {
		a.Mtime = now
	}
	if a.Ctime.IsZero() {
		a.Ctime = now
	}
}

// SetAttrs specifies which attributes to update in a SetAttr call.
//
// A nil pointer means "do not change this attribute". Stores always bump
// Ctime when any attribute changes, so there is no Ctime field.
type SetAttrs struct {
	// Mode is the new permission bits (only lower 12 bits are used)
	Mode *uint32

	// UID is the new owner user ID
	UID *uint32

	// GID is the new owner group ID
	GID *uint32

	// Size is the new file size in bytes; changing it also bumps Mtime
	Size *uint64

	// Mtime is the new modification time
	Mtime *time.Time
}

// IsEmpty reports whether no attribute would change.
func (s *SetAttrs) IsEmpty() bool {
	return s == nil || (s.Mode == nil && s.UID == nil && s.GID == nil && s.Size == nil && s.Mtime == nil)
}

// Apply updates attr in place and bumps Ctime to now.
func (s *SetAttrs) Apply(attr *FileAttr, now time.Time) {
	if s.Mode != nil {
		attr.Mode = *s.Mode & 0o7777
	}
	if s.UID != nil {
		attr.UID = *s.UID
	}
	if s.GID != nil {
		attr.GID = *s.GID
	}
	if s.Size != nil {
		attr.Size = *s.Size
		attr.Mtime = now
	}
	if s.Mtime != nil {
		attr.Mtime = *s.Mtime
	}
	attr.Ctime = now
}

// FileType represents the type of a filesystem object.
type FileType int

const (
	// FileTypeRegular is a regular file containing data
	FileTypeRegular FileType = iota

	// FileTypeDirectory is a directory
	FileTypeDirectory

	// FileTypeSymlink is a symbolic link
	FileTypeSymlink
)

func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	case FileTypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

func Uint32Ptr(v uint32) *uint32 { return &v }

func Uint64Ptr(v uint64) *uint64 { return &v }
