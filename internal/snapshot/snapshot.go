// Package snapshot encodes whole store images for export. A snapshot is a
// CBOR document sealed with a key derived from a passphrase.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/cryptox"
	"github.com/dmitrijs2005/safekeeper/internal/eeprom"
	"github.com/dmitrijs2005/safekeeper/internal/shared"
	"github.com/fxamacker/cbor/v2"
)

// Version is the document format written by Seal.
const Version uint8 = 1

var (
	// ErrSeal means the passphrase is wrong or the snapshot was altered.
	ErrSeal = errors.New("snapshot seal broken")
	// ErrFormat means the snapshot is not a document this package can read.
	ErrFormat = errors.New("unsupported snapshot format")
)

var aad = []byte("safekeeper-snapshot")

// Document is the sealed payload.
type Document struct {
	Version uint8     `cbor:"1,keyasint"`
	SavedAt time.Time `cbor:"2,keyasint"`
	Image   []byte    `cbor:"3,keyasint"`
}

// envelope is what goes on disk.
type envelope struct {
	Version uint8  `cbor:"1,keyasint"`
	Salt    []byte `cbor:"2,keyasint"`
	Sealed  []byte `cbor:"3,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: cbor decoder mode: %v", err))
	}
}

// Seal encodes doc and encrypts it under passphrase. doc.Version is set to
// Version.
func Seal(doc Document, passphrase []byte) ([]byte, error) {
	if len(doc.Image) != eeprom.Size {
		return nil, fmt.Errorf("image is %d bytes, want %d: %w", len(doc.Image), eeprom.Size, ErrFormat)
	}
	doc.Version = Version
	plain, err := encMode.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	defer shared.WipeByteArray(plain)

	salt, err := shared.RandBytes(cryptox.SaltSize)
	if err != nil {
		return nil, err
	}
	key := cryptox.DeriveKey(passphrase, salt)
	defer shared.WipeByteArray(key)

	sealed, err := cryptox.Seal(key, plain, aad)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(envelope{Version: Version, Salt: salt, Sealed: sealed})
}

// Open decrypts and decodes a snapshot produced by Seal.
func Open(blob, passphrase []byte) (*Document, error) {
	var env envelope
	if err := decMode.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w: %w", ErrFormat, err)
	}
	if env.Version != Version || len(env.Salt) != cryptox.SaltSize {
		return nil, fmt.Errorf("envelope version %d: %w", env.Version, ErrFormat)
	}

	key := cryptox.DeriveKey(passphrase, env.Salt)
	defer shared.WipeByteArray(key)
	plain, err := cryptox.Open(key, env.Sealed, aad)
	if err != nil {
		return nil, ErrSeal
	}
	defer shared.WipeByteArray(plain)

	var doc Document
	if err := decMode.Unmarshal(plain, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w: %w", ErrFormat, err)
	}
	if doc.Version != Version || len(doc.Image) != eeprom.Size {
		return nil, fmt.Errorf("document version %d, %d bytes: %w", doc.Version, len(doc.Image), ErrFormat)
	}
	return &doc, nil
}
