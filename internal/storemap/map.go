package storemap

import (
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/eeprom"
	"github.com/dmitrijs2005/safekeeper/internal/models"
)

// Map is the checksum guard over a Store. Every mutation of the primary
// region goes through Update, which writes the content and then the checksum
// before returning, so no reader can observe content without its checksum.
type Map struct {
	s eeprom.Store
}

// New wraps s. s must be at least eeprom.Size bytes.
func New(s eeprom.Store) *Map {
	return &Map{s: s}
}

// Store returns the underlying byte store.
func (m *Map) Store() eeprom.Store { return m.s }

// Read loads a copy of the primary region.
func (m *Map) Read() (*Region, error) {
	b, err := eeprom.ReadRange(m.s, PrimaryAddr, PrimarySize)
	if err != nil {
		return nil, fmt.Errorf("read primary region: %w", err)
	}
	return &Region{b: b}, nil
}

// Update stages the primary region, runs fn on the copy and, when fn
// succeeds, writes the changed bytes followed by a fresh checksum. When fn
// fails nothing is written.
func (m *Map) Update(fn func(r *Region) error) error {
	r, err := m.Read()
	if err != nil {
		return err
	}
	if err := fn(r); err != nil {
		return err
	}
	r.set(ChecksumAddr, Checksum(r.b))
	if err := eeprom.WriteRange(m.s, PrimaryAddr, r.b); err != nil {
		return fmt.Errorf("commit primary region: %w", err)
	}
	return nil
}

// Initialize formats the store unless it already holds an initialized map.
// It reports whether formatting happened; calling it again is a no-op.
func (m *Map) Initialize() (bool, error) {
	st, err := m.Status()
	if err != nil {
		return false, err
	}
	if st.Formatted() {
		return false, nil
	}
	return true, m.Format()
}

// Format zeroes the primary region, the event log and the elevation
// throttles and writes defaults: security level LOW, status INITIALIZED. The
// backup region is untouched.
func (m *Map) Format() error {
	if err := eeprom.Fill(m.s, LogHeadAddr, LogRegionSize, 0); err != nil {
		return fmt.Errorf("clear event log: %w", err)
	}
	if err := eeprom.Fill(m.s, AccountThrottleAddr, ThrottleSize, 0); err != nil {
		return fmt.Errorf("clear elevation throttles: %w", err)
	}
	return m.Update(func(r *Region) error {
		r.Zero()
		r.SetSecurityLevel(models.SecurityLow)
		r.SetStatus(models.StatusInitialized)
		return nil
	})
}

// ComputeChecksum returns the checksum of the primary region as it is
// currently stored.
func (m *Map) ComputeChecksum() (byte, error) {
	r, err := m.Read()
	if err != nil {
		return 0, err
	}
	return Checksum(r.b), nil
}

// StoredChecksum returns the persisted checksum byte.
func (m *Map) StoredChecksum() (byte, error) {
	return m.s.Get(ChecksumAddr)
}

// UpdateChecksum recomputes and persists the checksum.
func (m *Map) UpdateChecksum() error {
	return m.Update(func(*Region) error { return nil })
}

// VerifyIntegrity reports whether the stored checksum matches the region.
func (m *Map) VerifyIntegrity() (bool, error) {
	r, err := m.Read()
	if err != nil {
		return false, err
	}
	return r.get(ChecksumAddr) == Checksum(r.b), nil
}

// Status reads the status byte.
func (m *Map) Status() (models.Status, error) {
	v, err := m.s.Get(StatusAddr)
	return models.Status(v), err
}

// SetFlag sets status bits and updates the checksum.
func (m *Map) SetFlag(f models.Status) error {
	return m.Update(func(r *Region) error { r.SetFlag(f); return nil })
}

// ClearFlag clears status bits and updates the checksum.
func (m *Map) ClearFlag(f models.Status) error {
	return m.Update(func(r *Region) error { r.ClearFlag(f); return nil })
}

// Tries reads the failed attempt counter.
func (m *Map) Tries() (uint8, error) {
	return m.s.Get(TriesAddr)
}

// SetTries writes the failed attempt counter and updates the checksum.
func (m *Map) SetTries(n uint8) error {
	return m.Update(func(r *Region) error { r.SetTries(n); return nil })
}

// UserCount reads the number of occupied slots.
func (m *Map) UserCount() (int, error) {
	v, err := m.s.Get(UserCountAddr)
	return int(v), err
}

// AdminFlag reports whether the root account has been provisioned.
func (m *Map) AdminFlag() (bool, error) {
	v, err := m.s.Get(AdminFlagAddr)
	return v != 0, err
}

// SecurityLevel reads the persisted security level.
func (m *Map) SecurityLevel() (models.SecurityLevel, error) {
	v, err := m.s.Get(SecurityLevelAddr)
	return models.SecurityLevel(v), err
}

// SetSecurityLevel writes the security level and updates the checksum.
func (m *Map) SetSecurityLevel(l models.SecurityLevel) error {
	return m.Update(func(r *Region) error { r.SetSecurityLevel(l); return nil })
}

// ElevationFailures reads the throttle counter at addr, one of
// AccountThrottleAddr and RecoveryThrottleAddr.
func (m *Map) ElevationFailures(addr uint16) (uint8, error) {
	if addr != AccountThrottleAddr && addr != RecoveryThrottleAddr {
		return 0, fmt.Errorf("0x%03X is not an elevation throttle", addr)
	}
	return m.s.Get(addr)
}

// SetElevationFailures writes the throttle counter at addr.
func (m *Map) SetElevationFailures(addr uint16, n uint8) error {
	if addr != AccountThrottleAddr && addr != RecoveryThrottleAddr {
		return fmt.Errorf("0x%03X is not an elevation throttle", addr)
	}
	if err := m.s.Set(addr, n); err != nil {
		return fmt.Errorf("write elevation throttle: %w", err)
	}
	return nil
}

// Backup reads the backup mirror.
func (m *Map) Backup() ([]byte, error) {
	b, err := eeprom.ReadRange(m.s, BackupAddr, PrimarySize)
	if err != nil {
		return nil, fmt.Errorf("read backup region: %w", err)
	}
	return b, nil
}

// WriteBackup overwrites the backup mirror with region.
func (m *Map) WriteBackup(region []byte) error {
	if len(region) != PrimarySize {
		return fmt.Errorf("backup image is %d bytes, want %d", len(region), PrimarySize)
	}
	if err := eeprom.WriteRange(m.s, BackupAddr, region); err != nil {
		return fmt.Errorf("write backup region: %w", err)
	}
	return nil
}

// WipeBackup zeroes the backup mirror, which invalidates it.
func (m *Map) WipeBackup() error {
	if err := eeprom.Fill(m.s, BackupAddr, PrimarySize, 0); err != nil {
		return fmt.Errorf("wipe backup region: %w", err)
	}
	return nil
}

// BackupValid reports whether the mirror carries BACKUP_VALID in its own
// status byte and its own checksum agrees with its content.
func (m *Map) BackupValid() (bool, error) {
	b, err := m.Backup()
	if err != nil {
		return false, err
	}
	return MirrorValid(b), nil
}

// MirrorValid applies the backup validity rule to a region copy.
func MirrorValid(region []byte) bool {
	if len(region) != PrimarySize {
		return false
	}
	st := models.Status(region[offset(StatusAddr)])
	if !st.Formatted() || !st.Has(models.StatusBackupValid) {
		return false
	}
	return region[offset(ChecksumAddr)] == Checksum(region)
}

// WritePrimary replaces the primary region with region verbatim, checksum
// byte included. Used by restore, which re-verifies afterwards.
func (m *Map) WritePrimary(region []byte) error {
	if len(region) != PrimarySize {
		return fmt.Errorf("primary image is %d bytes, want %d", len(region), PrimarySize)
	}
	if err := eeprom.WriteRange(m.s, PrimaryAddr, region); err != nil {
		return fmt.Errorf("write primary region: %w", err)
	}
	return nil
}

// Image returns a copy of the whole store.
func (m *Map) Image() ([]byte, error) {
	return eeprom.ReadRange(m.s, 0, m.s.Size())
}

// LoadImage overwrites the whole store with img.
func (m *Map) LoadImage(img []byte) error {
	if len(img) != m.s.Size() {
		return fmt.Errorf("image is %d bytes, want %d", len(img), m.s.Size())
	}
	return eeprom.WriteRange(m.s, 0, img)
}
