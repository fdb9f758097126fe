package events

import (
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/eeprom"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/storemap"
)

// EEPROMRepository keeps the log in the event region of the store, outside
// the checksummed primary region and the backup mirror: restoring a backup
// never rewinds the audit trail.
type EEPROMRepository struct {
	s eeprom.Store
}

func NewEEPROMRepository(s eeprom.Store) *EEPROMRepository {
	return &EEPROMRepository{s: s}
}

func (r *EEPROMRepository) Capacity() int { return storemap.LogCapacity }

type header struct {
	head, count, seq uint8
}

func (r *EEPROMRepository) header() (header, error) {
	b, err := eeprom.ReadRange(r.s, storemap.LogHeadAddr, 3)
	if err != nil {
		return header{}, err
	}
	h := header{head: b[0], count: b[1], seq: b[2]}
	if int(h.head) >= storemap.LogCapacity || int(h.count) > storemap.LogCapacity {
		return h, fmt.Errorf("event log header %v: %w", b, common.ErrChecksum)
	}
	return h, nil
}

func entryAddr(i int) uint16 {
	return storemap.LogEntriesAddr + uint16(i*storemap.LogEntrySize)
}

// Append writes the entry first and the header last, so an interrupted
// append loses the new entry but never corrupts the existing ones. A corrupt
// header is reset instead of failing the caller's security operation.
func (r *EEPROMRepository) Append(t models.EventType, userIndex uint8) (models.Event, error) {
	h, err := r.header()
	if err != nil {
		if err := r.Clear(); err != nil {
			return models.Event{}, err
		}
		h = header{}
	}

	ev := models.Event{Type: t, UserIndex: userIndex, Sequence: h.seq}
	if err := eeprom.WriteRange(r.s, entryAddr(int(h.head)), []byte{byte(t), userIndex, h.seq}); err != nil {
		return models.Event{}, fmt.Errorf("append event: %w", err)
	}

	next := header{
		head:  uint8((int(h.head) + 1) % storemap.LogCapacity),
		count: h.count,
		seq:   h.seq + 1,
	}
	if int(next.count) < storemap.LogCapacity {
		next.count++
	}
	if err := eeprom.WriteRange(r.s, storemap.LogHeadAddr, []byte{next.head, next.count, next.seq}); err != nil {
		return models.Event{}, fmt.Errorf("append event: %w", err)
	}
	return ev, nil
}

// List returns the entries oldest first.
func (r *EEPROMRepository) List() ([]models.Event, error) {
	h, err := r.header()
	if err != nil {
		return nil, err
	}
	out := make([]models.Event, 0, h.count)
	start := (int(h.head) - int(h.count) + storemap.LogCapacity) % storemap.LogCapacity
	for i := 0; i < int(h.count); i++ {
		b, err := eeprom.ReadRange(r.s, entryAddr((start+i)%storemap.LogCapacity), storemap.LogEntrySize)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Event{Type: models.EventType(b[0]), UserIndex: b[1], Sequence: b[2]})
	}
	return out, nil
}

// Last returns the newest entry; ok is false for an empty log.
func (r *EEPROMRepository) Last() (models.Event, bool, error) {
	all, err := r.List()
	if err != nil || len(all) == 0 {
		return models.Event{}, false, err
	}
	return all[len(all)-1], true, nil
}

// Clear wipes the entries and the header. The sequence counter restarts at 0.
func (r *EEPROMRepository) Clear() error {
	if err := eeprom.Fill(r.s, storemap.LogHeadAddr, storemap.LogRegionSize, 0); err != nil {
		return fmt.Errorf("clear event log: %w", err)
	}
	return nil
}

var _ Repository = (*EEPROMRepository)(nil)
