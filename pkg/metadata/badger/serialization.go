package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/marmos91/wormfs/pkg/metadata"
)

// Serialization Strategy
// ======================
//
// File attributes are stored as JSON: human-readable, tolerant of added
// fields, easy to inspect with badger's CLI tools. The schema version is a
// fixed-width big-endian uint32.

// fileData is the stored representation of a file entry.
type fileData struct {
	// Attr contains the file attributes
	Attr *metadata.FileAttr `json:"attr"`

	// ShareName tracks which share this file belongs to
	ShareName string `json:"share_name"`

	// Path is the cleaned share-relative path
	Path string `json:"path"`
}

func encodeFileData(fd *fileData) ([]byte, error) {
	data, err := json.Marshal(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file data: %w", err)
	}
	return data, nil
}

func decodeFileData(data []byte) (*fileData, error) {
	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("failed to decode file data: %w", err)
	}
	if fd.Attr == nil {
		return nil, fmt.Errorf("failed to decode file data: missing attributes")
	}
	return &fd, nil
}

func encodeUint32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

func decodeUint32(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("invalid uint32 encoding: %d bytes", len(data))
	}
	return binary.BigEndian.Uint32(data), nil
}
