package models

// EventType classifies an audit event. Values are the persisted codes.
type EventType uint8

const (
	// EventNone is reported by an empty log.
	EventNone EventType = 0x00

	EventLoginSuccess  EventType = 0x01
	EventLoginFail     EventType = 0x02
	EventPassChange    EventType = 0x03
	EventUserChange    EventType = 0x04
	EventUserDelete    EventType = 0x05
	EventUserCreate    EventType = 0x06
	EventSystemReset   EventType = 0x07
	EventBackupCreate  EventType = 0x08
	EventBackupRestore EventType = 0x09
	EventSystemLock    EventType = 0x0A
	EventSystemUnlock  EventType = 0x0B
)

// NoUser is the user index recorded when an event concerns no slot.
const NoUser uint8 = 0xFF

var eventNames = map[EventType]string{
	EventNone:          "NONE",
	EventLoginSuccess:  "LOGIN_SUCCESS",
	EventLoginFail:     "LOGIN_FAIL",
	EventPassChange:    "PASS_CHANGE",
	EventUserChange:    "USER_CHANGE",
	EventUserDelete:    "USER_DELETE",
	EventUserCreate:    "USER_CREATE",
	EventSystemReset:   "SYSTEM_RESET",
	EventBackupCreate:  "BACKUP_CREATE",
	EventBackupRestore: "BACKUP_RESTORE",
	EventSystemLock:    "SYSTEM_LOCK",
	EventSystemUnlock:  "SYSTEM_UNLOCK",
}

func (e EventType) String() string {
	if s, ok := eventNames[e]; ok {
		return s
	}
	return "UNKNOWN"
}

// Event is one audit log entry.
type Event struct {
	Type      EventType
	UserIndex uint8
	Sequence  uint8
}
