package eeprom

// Memory is an in-RAM store. A new Memory reads 0xFF everywhere, like an
// erased chip.
type Memory struct {
	cells  [Size]byte
	writes int
}

// NewMemory returns an erased store.
func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.cells {
		m.cells[i] = 0xFF
	}
	return m
}

func (m *Memory) Get(addr uint16) (byte, error) {
	if int(addr) >= Size {
		return 0, ErrOutOfRange
	}
	return m.cells[addr], nil
}

func (m *Memory) Set(addr uint16, v byte) error {
	if int(addr) >= Size {
		return ErrOutOfRange
	}
	m.cells[addr] = v
	m.writes++
	return nil
}

func (m *Memory) Size() int { return Size }

// Writes returns the number of byte writes performed so far.
func (m *Memory) Writes() int { return m.writes }

// Bytes returns a copy of the whole store.
func (m *Memory) Bytes() []byte {
	return append([]byte(nil), m.cells[:]...)
}
