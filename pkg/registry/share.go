package registry

import "github.com/marmos91/wormfs/pkg/vfs"

// Share represents a configured share that binds together:
// - A share name
// - A metadata store instance
// - The ordered interception layers and their parametric options
// - Identity mapping rules (squashing)
//
// Multiple shares can reference the same store instance.
type Share struct {
	Name          string
	MetadataStore string // Name of the metadata store
	Kind          vfs.ConnectionKind

	// Layers lists layer names, outermost first
	Layers []string

	// Options is handed to every connection as vfs.Params
	Options vfs.ParamMap

	// Identity Mapping (Squashing)
	MapAllToAnonymous        bool   // Map all users to anonymous (all_squash)
	MapPrivilegedToAnonymous bool   // Map root to anonymous (root_squash)
	AnonymousUID             uint32 // UID for anonymous users
	AnonymousGID             uint32 // GID for anonymous users

	pipeline *vfs.Pipeline
}

// Pipeline returns the share's open pipeline.
func (s *Share) Pipeline() *vfs.Pipeline {
	return s.pipeline
}

// ShareConfig contains all configuration needed to create a share.
type ShareConfig struct {
	Name          string
	MetadataStore string
	Kind          vfs.ConnectionKind
	Layers        []string
	Options       vfs.ParamMap

	// Identity Mapping
	MapAllToAnonymous        bool
	MapPrivilegedToAnonymous bool
	AnonymousUID             uint32
	AnonymousGID             uint32
}
