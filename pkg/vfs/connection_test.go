package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection_Kind(t *testing.T) {
	disk := NewConnection("/export", "bob", KindDisk, nil)
	ipc := NewConnection("IPC$", "bob", KindIPC, nil)
	printer := NewConnection("/lp", "bob", KindPrint, nil)

	assert.False(t, disk.IsAdministrative())
	assert.False(t, disk.IsQueue())
	assert.True(t, ipc.IsAdministrative())
	assert.True(t, printer.IsQueue())
	assert.NotEqual(t, disk.ID, ipc.ID)
	assert.Equal(t, "bob@/export(disk)", disk.String())
}

func TestParseConnectionKind(t *testing.T) {
	for in, want := range map[string]ConnectionKind{"": KindDisk, "disk": KindDisk, "IPC": KindIPC, "print": KindPrint, "printer": KindPrint} {
		got, err := ParseConnectionKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseConnectionKind("tape")
	assert.Error(t, err)
}

func TestParamMap_Lookup(t *testing.T) {
	params := ParamMap{
		"worm.grace_period": 10,
		"ratelimit": map[string]any{
			"Burst": 5,
		},
		"nested": map[any]any{"deep": map[string]any{"value": "x"}},
	}

	v, ok := params.Lookup("worm.grace_period")
	assert.True(t, ok)
	assert.Equal(t, 10, v)

	v, ok = params.Lookup("ratelimit.burst")
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	v, ok = params.Lookup("nested.deep.value")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = params.Lookup("worm.missing")
	assert.False(t, ok)

	_, ok = params.Lookup("worm.grace_period.sub")
	assert.False(t, ok)

	_, ok = ParamMap(nil).Lookup("anything")
	assert.False(t, ok)
}

func TestFloatParam(t *testing.T) {
	params := ParamMap{"a": "1.5", "b": 2, "c": "nope", "d": nil}

	v, err := FloatParam(params, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	v, err = FloatParam(params, "b", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = FloatParam(params, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	v, err = FloatParam(params, "d", 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	v, err = FloatParam(nil, "a", 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = FloatParam(params, "c", 0)
	assert.True(t, IsCode(err, ErrInvalidParameter), "got %v", err)
}

func TestIntParam(t *testing.T) {
	params := ParamMap{"burst": "20", "bad": "many"}

	v, err := IntParam(params, "burst", 1)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	v, err = IntParam(params, "missing", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = IntParam(params, "bad", 1)
	assert.True(t, IsCode(err, ErrInvalidParameter), "got %v", err)
}
