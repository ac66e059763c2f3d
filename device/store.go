package device

// Store is the backing storage of the simulated device. It stands in for the
// accelerator's internal memory and is never visible to the driver.
type Store interface {
	Get(key uint32) (uint64, bool, error)
	Put(key uint32, value uint64) error
	// Delete reports whether the key was present.
	Delete(key uint32) (bool, error)
	Len() int
	Close() error
}

// MemStore keeps entries in a map.
type MemStore struct {
	entries map[uint32]uint64
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[uint32]uint64)}
}

func (m *MemStore) Get(key uint32) (uint64, bool, error) {
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *MemStore) Put(key uint32, value uint64) error {
	m.entries[key] = value
	return nil
}

func (m *MemStore) Delete(key uint32) (bool, error) {
	if _, ok := m.entries[key]; !ok {
		return false, nil
	}
	delete(m.entries, key)
	return true, nil
}

func (m *MemStore) Len() int {
	return len(m.entries)
}

func (m *MemStore) Close() error {
	return nil
}
