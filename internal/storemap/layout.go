// Package storemap defines the fixed memory map of the persistent store and
// guards the integrity of its primary region with a one-byte checksum.
//
//	0x000-0x00F  event log (head, count, sequence, 4 x 3-byte entries)
//	0x010        system status flags
//	0x011        security level
//	0x012        failed attempt counter
//	0x013        user count
//	0x014        admin (root provisioned) flag
//	0x015        checksum of 0x010-0x1FF, this byte excluded
//	0x016-0x1FF  user table, 11 x 43-byte records, 17 bytes reserved
//	0x200-0x3EF  backup mirror of 0x010-0x1FF
//	0x3F0        failed account elevations
//	0x3F1        failed recovery code elevations
//	0x3F2-0x3FF  reserved
package storemap

const (
	LogHeadAddr    uint16 = 0x00
	LogCountAddr   uint16 = 0x01
	LogSeqAddr     uint16 = 0x02
	LogEntriesAddr uint16 = 0x03
	LogEntrySize          = 3
	LogCapacity           = 4
	LogRegionSize         = 0x10

	StatusAddr        uint16 = 0x10
	SecurityLevelAddr uint16 = 0x11
	TriesAddr         uint16 = 0x12
	UserCountAddr     uint16 = 0x13
	AdminFlagAddr     uint16 = 0x14
	ChecksumAddr      uint16 = 0x15
	UserTableAddr     uint16 = 0x16
	BackupAddr        uint16 = 0x200

	// Elevation throttles sit outside the checksummed and mirrored
	// regions, so a restore or a reset cannot rewind them.
	AccountThrottleAddr  uint16 = 0x3F0
	RecoveryThrottleAddr uint16 = 0x3F1
	ThrottleSize                = 2

	PrimaryAddr uint16 = StatusAddr
	PrimarySize        = int(BackupAddr - PrimaryAddr)

	// RecordSize is meta(1) + username length(1) + username(20) +
	// password length(1) + password(20).
	RecordSize = 43
	MaxUsers   = int(BackupAddr-UserTableAddr) / RecordSize
)

// offset converts an absolute address inside the primary region to an index
// into a primary region buffer.
func offset(addr uint16) int {
	return int(addr - PrimaryAddr)
}

// RecordAddr returns the address of the record in slot.
func RecordAddr(slot int) uint16 {
	return UserTableAddr + uint16(slot*RecordSize)
}
