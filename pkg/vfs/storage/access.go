package storage

import (
	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/marmos91/wormfs/pkg/vfs"
)

// Rights every caller holds on a file it can see.
const baseAccess = vfs.FileReadAttributes | vfs.ReadControl | vfs.Synchronize

// AllowedAccess derives the NT rights conn may hold on a file from its Unix
// mode. The owner triplet applies to the owner, the group triplet to group
// members and the other triplet to everyone else; uid 0 holds every right.
//
// The owner can always change attributes and the security descriptor, as
// chmod/chown would let it.
func AllowedAccess(conn *vfs.Connection, attr *metadata.FileAttr) vfs.AccessMask {
	if conn.UID == 0 {
		return vfs.FileAllAccess
	}

	var bits uint32
	owner := conn.UID == attr.UID
	switch {
	case owner:
		bits = attr.Mode >> 6
	case conn.GID == attr.GID:
		bits = attr.Mode >> 3
	default:
		bits = attr.Mode
	}

	allowed := baseAccess
	if bits&0o4 != 0 {
		allowed |= vfs.FileReadData | vfs.FileReadEA
	}
	if bits&0o2 != 0 {
		allowed |= vfs.FileWriteData | vfs.FileAppendData | vfs.FileWriteEA | vfs.FileWriteAttributes | vfs.Delete
		if attr.Type == metadata.FileTypeDirectory {
			allowed |= vfs.FileDeleteChild
		}
	}
	if bits&0o1 != 0 {
		allowed |= vfs.FileExecute
	}
	if owner {
		allowed |= vfs.FileWriteAttributes | vfs.WriteDAC | vfs.WriteOwner
	}
	return allowed
}

// ResolveAccess computes the effective access for a request whose generic
// rights are already mapped. MaximumAllowed grants everything allowed; any
// explicitly requested right outside allowed fails with ErrAccessDenied.
func ResolveAccess(path string, requested, allowed vfs.AccessMask) (vfs.AccessMask, error) {
	explicit := requested &^ vfs.MaximumAllowed
	if missing := explicit &^ allowed; missing != 0 {
		return 0, &vfs.Error{
			Code:    vfs.ErrAccessDenied,
			Op:      "open",
			Path:    path,
			Message: "permission denied for " + missing.String(),
		}
	}

	granted := explicit
	if requested.Intersects(vfs.MaximumAllowed) {
		granted |= allowed
	}
	return granted, nil
}
