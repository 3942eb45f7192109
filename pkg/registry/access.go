package registry

import (
	"fmt"

	"github.com/marmos91/wormfs/pkg/vfs"
)

// Identity is who a connection acts as.
type Identity struct {
	User string
	UID  uint32
	GID  uint32
}

// ApplyIdentityMapping applies share-level identity mapping rules to create effective credentials.
//
// This implements:
//   - all_squash: Maps all users to anonymous
//   - root_squash: Maps root (UID 0) to anonymous
//
// The effective identity is what storage uses for permission checks and
// for the owner of new files.
func (r *Registry) ApplyIdentityMapping(shareName string, identity Identity) (Identity, error) {
	share, err := r.GetShare(shareName)
	if err != nil {
		return Identity{}, err
	}
	return share.mapIdentity(identity), nil
}

// ConnectionFor builds the connection a client gets on a share: its kind,
// its parametric options and the mapped identity.
func (r *Registry) ConnectionFor(shareName, user string, uid, gid uint32) (*vfs.Connection, error) {
	share, err := r.GetShare(shareName)
	if err != nil {
		return nil, err
	}
	return share.connection(Identity{User: user, UID: uid, GID: gid}), nil
}

// mapIdentity applies the share's squash rules. all_squash wins over
// root_squash; both map to the share's anonymous uid and gid.
func (s *Share) mapIdentity(identity Identity) Identity {
	if s.MapAllToAnonymous || (s.MapPrivilegedToAnonymous && identity.UID == 0) {
		return Identity{
			User: fmt.Sprintf("anonymous(%d)", s.AnonymousUID),
			UID:  s.AnonymousUID,
			GID:  s.AnonymousGID,
		}
	}
	return identity
}

// connection builds the vfs connection for a mapped identity.
func (s *Share) connection(identity Identity) *vfs.Connection {
	identity = s.mapIdentity(identity)

	conn := vfs.NewConnection(s.Name, identity.User, s.Kind, s.Options)
	conn.UID = identity.UID
	conn.GID = identity.GID
	return conn
}
