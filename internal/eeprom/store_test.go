package eeprom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ErasedAndBounds(t *testing.T) {
	m := NewMemory()
	assert.Equal(t, Size, m.Size())

	v, err := m.Get(0x3FF)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), v)

	_, err = m.Get(Size)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, m.Set(Size, 1), ErrOutOfRange)
}

func TestWriteRange_SkipsUnchangedBytes(t *testing.T) {
	m := NewMemory()
	require.NoError(t, WriteRange(m, 0x10, []byte{1, 2, 3}))
	assert.Equal(t, 3, m.Writes())

	require.NoError(t, WriteRange(m, 0x10, []byte{1, 9, 3}))
	assert.Equal(t, 4, m.Writes(), "only the changed byte is written")

	got, err := ReadRange(m, 0x10, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 9, 3}, got)

	assert.ErrorIs(t, WriteRange(m, 0x3FF, []byte{1, 2}), ErrOutOfRange)
	_, err = ReadRange(m, 0x3FE, 3)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestFill(t *testing.T) {
	m := NewMemory()
	require.NoError(t, Fill(m, 0x200, 4, 0))
	got, err := ReadRange(m, 0x1FF, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0, 0, 0, 0, 0xFF}, got)
}

func TestFileImage_CreatePersistReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev", "eeprom.img")

	img, err := OpenFileImage(path)
	require.NoError(t, err)

	v, err := img.Get(0x10)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), v, "new image is erased")

	require.NoError(t, img.Set(0x10, 0x01))
	require.NoError(t, img.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, Size)
	assert.Equal(t, byte(0x01), data[0x10])

	img, err = OpenFileImage(path)
	require.NoError(t, err)
	defer img.Close()
	v, err = img.Get(0x10)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), v)
}

func TestFileImage_RejectsWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.img")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))

	_, err := OpenFileImage(path)
	require.Error(t, err)
}
