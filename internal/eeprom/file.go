package eeprom

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/safekeeper/internal/filex"
)

// FileImage is a store backed by a Size-byte image file on the host. Reads
// are served from memory; every write goes through to the file.
type FileImage struct {
	f     *os.File
	cells [Size]byte
}

// OpenFileImage opens the image at path, creating an erased image (all 0xFF)
// when the file does not exist.
func OpenFileImage(path string) (*FileImage, error) {
	if err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = bytes.Repeat([]byte{0xFF}, Size)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, fmt.Errorf("create image %s: %w", path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	if len(data) != Size {
		return nil, fmt.Errorf("image %s is %d bytes, want %d", path, len(data), Size)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}

	img := &FileImage{f: f}
	copy(img.cells[:], data)
	return img, nil
}

func (i *FileImage) Get(addr uint16) (byte, error) {
	if int(addr) >= Size {
		return 0, ErrOutOfRange
	}
	return i.cells[addr], nil
}

func (i *FileImage) Set(addr uint16, v byte) error {
	if int(addr) >= Size {
		return ErrOutOfRange
	}
	if _, err := i.f.WriteAt([]byte{v}, int64(addr)); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	i.cells[addr] = v
	return nil
}

func (i *FileImage) Size() int { return Size }

// Sync flushes the image file to disk.
func (i *FileImage) Sync() error {
	return i.f.Sync()
}

// Close syncs and closes the image file.
func (i *FileImage) Close() error {
	if err := i.f.Sync(); err != nil {
		_ = i.f.Close()
		return err
	}
	return i.f.Close()
}
