package models

import "strings"

// Status is the persisted system status bit set.
type Status uint8

const (
	StatusInitialized Status = 0x01
	StatusLocked      Status = 0x02
	StatusMaintenance Status = 0x04
	StatusBackupValid Status = 0x08

	// statusReserved must read as zero on a formatted store. A blank chip
	// reads 0xFF, which would otherwise look initialized.
	statusReserved Status = 0xF0
)

// Has reports whether all bits of flag are set.
func (s Status) Has(flag Status) bool {
	return s&flag == flag
}

// Formatted reports whether the status byte belongs to an initialized store.
func (s Status) Formatted() bool {
	return s.Has(StatusInitialized) && s&statusReserved == 0
}

// String renders the set flags, e.g. "INITIALIZED|LOCKED".
func (s Status) String() string {
	var parts []string
	if s.Has(StatusInitialized) {
		parts = append(parts, "INITIALIZED")
	}
	if s.Has(StatusLocked) {
		parts = append(parts, "LOCKED")
	}
	if s.Has(StatusMaintenance) {
		parts = append(parts, "MAINTENANCE")
	}
	if s.Has(StatusBackupValid) {
		parts = append(parts, "BACKUP_VALID")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// SecurityLevel selects the password policy thresholds.
type SecurityLevel uint8

const (
	SecurityLow    SecurityLevel = 0
	SecurityMedium SecurityLevel = 1
	SecurityHigh   SecurityLevel = 2
)

// Valid reports whether l is a defined level.
func (l SecurityLevel) Valid() bool {
	return l <= SecurityHigh
}

// MinPasswordLength is the shortest password accepted at this level.
// Unknown levels fall back to the strictest threshold.
func (l SecurityLevel) MinPasswordLength() int {
	switch l {
	case SecurityLow:
		return PasswordMinLength
	case SecurityMedium:
		return 10
	default:
		return 12
	}
}

func (l SecurityLevel) String() string {
	switch l {
	case SecurityLow:
		return "LOW"
	case SecurityMedium:
		return "MEDIUM"
	case SecurityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}
