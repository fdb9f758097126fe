package users

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/storemap"
)

// EEPROMRepository stores users in the table of a storemap.Map. Every write
// is committed through Map.Update, so record, count, admin flag and checksum
// change together.
type EEPROMRepository struct {
	m *storemap.Map
}

func NewEEPROMRepository(m *storemap.Map) *EEPROMRepository {
	return &EEPROMRepository{m: m}
}

func (r *EEPROMRepository) Capacity() int { return storemap.MaxUsers }

func (r *EEPROMRepository) Count() (int, error) {
	n, err := r.m.UserCount()
	if err != nil {
		return 0, err
	}
	if n > storemap.MaxUsers {
		return 0, fmt.Errorf("user count %d exceeds capacity: %w", n, common.ErrChecksum)
	}
	return n, nil
}

func (r *EEPROMRepository) Get(slot int) (*models.User, error) {
	reg, err := r.m.Read()
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot >= reg.UserCount() || slot >= storemap.MaxUsers {
		return nil, common.ErrInvalidUser
	}
	return decodeRecord(slot, reg.Record(slot))
}

func (r *EEPROMRepository) List() ([]models.User, error) {
	reg, err := r.m.Read()
	if err != nil {
		return nil, err
	}
	return list(reg)
}

func list(reg *storemap.Region) ([]models.User, error) {
	n := reg.UserCount()
	if n > storemap.MaxUsers {
		return nil, fmt.Errorf("user count %d exceeds capacity: %w", n, common.ErrChecksum)
	}
	out := make([]models.User, 0, n)
	for slot := 0; slot < n; slot++ {
		u, err := decodeRecord(slot, reg.Record(slot))
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

// FindByName returns common.ErrInvalidUser when no slot holds name.
func (r *EEPROMRepository) FindByName(name []byte) (*models.User, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name.Matches(name) {
			return &all[i], nil
		}
	}
	return nil, common.ErrInvalidUser
}

func (r *EEPROMRepository) Exists(name []byte) (bool, error) {
	_, err := r.FindByName(name)
	if errors.Is(err, common.ErrInvalidUser) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create appends u to the table and returns it with its slot. A SUPER user
// can only be created while none exists; creating it raises the admin flag.
func (r *EEPROMRepository) Create(u models.User) (*models.User, error) {
	var created models.User
	err := r.m.Update(func(reg *storemap.Region) error {
		all, err := list(reg)
		if err != nil {
			return err
		}
		for _, other := range all {
			if other.Name.Matches(u.Name.Bytes()) {
				return common.ErrUserExists
			}
			if u.Role == models.RoleSuper && other.Role == models.RoleSuper {
				return common.ErrNoPermission
			}
		}
		if len(all) >= storemap.MaxUsers {
			return common.ErrSystemFull
		}

		created = u
		created.Slot = uint8(len(all))
		reg.SetRecord(len(all), encodeRecord(created))
		reg.SetUserCount(len(all) + 1)
		if u.Role == models.RoleSuper {
			reg.SetAdminFlag(true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Update rewrites the record in u.Slot. The caller is responsible for name
// uniqueness and role rules.
func (r *EEPROMRepository) Update(u models.User) error {
	return r.m.Update(func(reg *storemap.Region) error {
		slot := int(u.Slot)
		if slot >= reg.UserCount() || slot >= storemap.MaxUsers {
			return common.ErrInvalidUser
		}
		reg.SetRecord(slot, encodeRecord(u))
		return nil
	})
}

// Delete removes slot and shifts the following records down by one.
func (r *EEPROMRepository) Delete(slot int) error {
	return r.m.Update(func(reg *storemap.Region) error {
		n := reg.UserCount()
		if n > storemap.MaxUsers {
			return fmt.Errorf("user count %d exceeds capacity: %w", n, common.ErrChecksum)
		}
		if slot < 0 || slot >= n {
			return common.ErrInvalidUser
		}
		victim, err := decodeRecord(slot, reg.Record(slot))
		if err != nil {
			return err
		}
		for i := slot; i < n-1; i++ {
			reg.SetRecord(i, reg.Record(i+1))
		}
		reg.SetRecord(n-1, nil)
		reg.SetUserCount(n - 1)
		if victim.Role == models.RoleSuper {
			reg.SetAdminFlag(false)
		}
		return nil
	})
}

// Root returns the SUPER account or common.ErrInvalidUser if none exists.
func (r *EEPROMRepository) Root() (*models.User, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Role == models.RoleSuper {
			return &all[i], nil
		}
	}
	return nil, common.ErrInvalidUser
}

var _ Repository = (*EEPROMRepository)(nil)
