package users

import (
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/storemap"
)

// Record layout inside a storemap.RecordSize slot.
const (
	metaOffset    = 0
	nameLenOffset = 1
	nameOffset    = 2
	passLenOffset = nameOffset + models.UsernameMaxLength
	passOffset    = passLenOffset + 1
	metaOccupied  = 0x80
	metaRoleMask  = 0x03
	metaReserved  = 0x7C
)

func encodeRecord(u models.User) []byte {
	rec := make([]byte, storemap.RecordSize)
	rec[metaOffset] = metaOccupied | byte(u.Role)&metaRoleMask
	rec[nameLenOffset] = byte(u.Name.Len())
	copy(rec[nameOffset:], u.Name.Bytes())
	rec[passLenOffset] = byte(u.Password.Len())
	copy(rec[passOffset:], u.Password.Bytes())
	return rec
}

// decodeRecord rebuilds the user in slot. A record that violates the layout
// means the table is corrupt and is reported as a checksum failure.
func decodeRecord(slot int, rec []byte) (*models.User, error) {
	meta := rec[metaOffset]
	if meta&metaOccupied == 0 || meta&metaReserved != 0 {
		return nil, fmt.Errorf("slot %d: bad record header 0x%02X: %w", slot, meta, common.ErrChecksum)
	}

	nl := int(rec[nameLenOffset])
	if nl > models.UsernameMaxLength {
		return nil, fmt.Errorf("slot %d: username length %d: %w", slot, nl, common.ErrChecksum)
	}
	name, err := models.NewUsername(rec[nameOffset : nameOffset+nl])
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", slot, common.ErrChecksum)
	}

	pl := int(rec[passLenOffset])
	if pl > models.PasswordMaxLength {
		return nil, fmt.Errorf("slot %d: password length %d: %w", slot, pl, common.ErrChecksum)
	}
	pw, err := models.StoredPassword(rec[passOffset : passOffset+pl])
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", slot, common.ErrChecksum)
	}

	return &models.User{
		Slot:     uint8(slot),
		Name:     name,
		Password: pw,
		Role:     models.Role(meta & metaRoleMask),
	}, nil
}
