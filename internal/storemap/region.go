package storemap

import "github.com/dmitrijs2005/safekeeper/internal/models"

// Region is an in-memory copy of the primary region. Changes made to a
// Region reach the store only through Map.Update.
type Region struct {
	b []byte
}

func (r *Region) get(addr uint16) byte      { return r.b[offset(addr)] }
func (r *Region) set(addr uint16, v byte)   { r.b[offset(addr)] = v }
func (r *Region) Bytes() []byte             { return append([]byte(nil), r.b...) }
func (r *Region) Status() models.Status     { return models.Status(r.get(StatusAddr)) }
func (r *Region) SetStatus(s models.Status) { r.set(StatusAddr, byte(s)) }
func (r *Region) SetFlag(f models.Status)   { r.SetStatus(r.Status() | f) }
func (r *Region) ClearFlag(f models.Status) { r.SetStatus(r.Status() &^ f) }
func (r *Region) Tries() uint8              { return r.get(TriesAddr) }
func (r *Region) SetTries(n uint8)          { r.set(TriesAddr, n) }
func (r *Region) UserCount() int            { return int(r.get(UserCountAddr)) }
func (r *Region) SetUserCount(n int)        { r.set(UserCountAddr, byte(n)) }
func (r *Region) AdminFlag() bool           { return r.get(AdminFlagAddr) != 0 }

func (r *Region) SetAdminFlag(on bool) {
	var v byte
	if on {
		v = 1
	}
	r.set(AdminFlagAddr, v)
}

func (r *Region) SecurityLevel() models.SecurityLevel {
	return models.SecurityLevel(r.get(SecurityLevelAddr))
}

func (r *Region) SetSecurityLevel(l models.SecurityLevel) {
	r.set(SecurityLevelAddr, byte(l))
}

// Record returns a copy of the raw record in slot.
func (r *Region) Record(slot int) []byte {
	start := offset(RecordAddr(slot))
	return append([]byte(nil), r.b[start:start+RecordSize]...)
}

// SetRecord replaces the raw record in slot. rec shorter than RecordSize is
// zero padded.
func (r *Region) SetRecord(slot int, rec []byte) {
	start := offset(RecordAddr(slot))
	dst := r.b[start : start+RecordSize]
	n := copy(dst, rec)
	for i := n; i < RecordSize; i++ {
		dst[i] = 0
	}
}

// Zero clears the whole region.
func (r *Region) Zero() {
	for i := range r.b {
		r.b[i] = 0
	}
}
