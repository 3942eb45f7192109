package badger

import (
	"github.com/marmos91/wormfs/pkg/metadata"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys separate data types.
//
// Data Type     Prefix   Key Format                     Value Type
// ===============================================================
// File Data     "f:"     f:<shareName>\x00<cleanPath>   fileData (JSON)
// Store Info    "cfg:"   cfg:version                    uint32 (binary)
//
// The NUL separator cannot appear in a share name or a validated path, so
// two (share, path) pairs never map to the same key.

const (
	prefixFile    = "f:"
	keyVersion    = "cfg:version"
	schemaVersion = uint32(1)
)

// keyFile returns the key under which a file's attributes are stored.
func keyFile(share, path string) []byte {
	return []byte(prefixFile + share + "\x00" + metadata.CleanPath(path))
}
