package storage

import (
	"testing"

	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/marmos91/wormfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedAccess(t *testing.T) {
	file := &metadata.FileAttr{Type: metadata.FileTypeRegular, Mode: 0640, UID: 1000, GID: 100}

	conn := func(uid, gid uint32) *vfs.Connection {
		c := vfs.NewConnection("/s", "u", vfs.KindDisk, nil)
		c.UID, c.GID = uid, gid
		return c
	}

	owner := AllowedAccess(conn(1000, 1000), file)
	assert.True(t, owner.Contains(vfs.FileReadData|vfs.FileWriteData|vfs.Delete))
	assert.True(t, owner.Contains(vfs.WriteDAC|vfs.WriteOwner))

	group := AllowedAccess(conn(2000, 100), file)
	assert.True(t, group.Contains(vfs.FileReadData))
	assert.False(t, group.Intersects(vfs.WriteAccessMask))

	other := AllowedAccess(conn(3000, 300), file)
	assert.Equal(t, baseAccess, other)

	assert.Equal(t, vfs.FileAllAccess, AllowedAccess(conn(0, 0), file))
}

func TestAllowedAccess_ReadOnlyOwner(t *testing.T) {
	file := &metadata.FileAttr{Mode: 0444, UID: 1000}
	c := vfs.NewConnection("/s", "u", vfs.KindDisk, nil)
	c.UID = 1000

	allowed := AllowedAccess(c, file)
	assert.False(t, allowed.Intersects(vfs.FileWriteData|vfs.FileAppendData|vfs.Delete))
	assert.True(t, allowed.Contains(vfs.FileWriteAttributes|vfs.WriteDAC|vfs.WriteOwner), "owner can always chmod")
}

func TestResolveAccess(t *testing.T) {
	allowed := baseAccess | vfs.FileReadData | vfs.FileWriteAttributes

	granted, err := ResolveAccess("/f", vfs.FileReadData, allowed)
	require.NoError(t, err)
	assert.Equal(t, vfs.FileReadData, granted)

	granted, err = ResolveAccess("/f", vfs.MaximumAllowed, allowed)
	require.NoError(t, err)
	assert.Equal(t, allowed, granted)

	granted, err = ResolveAccess("/f", vfs.MaximumAllowed|vfs.FileReadData, allowed)
	require.NoError(t, err)
	assert.Equal(t, allowed, granted)

	_, err = ResolveAccess("/f", vfs.FileReadData|vfs.Delete, allowed)
	require.Error(t, err)
	assert.True(t, vfs.IsCode(err, vfs.ErrAccessDenied))
	assert.Contains(t, err.Error(), "delete")
}
