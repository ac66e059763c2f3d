package driver

import "sync"

// Serialized guards a Driver with a mutex so several goroutines can share
// one device. Each command holds the lock from its first register write until
// its result has been read back.
type Serialized struct {
	mu sync.Mutex
	d  *Driver
}

var _ Cache = (*Serialized)(nil)

func Serialize(d *Driver) *Serialized {
	return &Serialized{d: d}
}

func (s *Serialized) Upsert(key uint32, value uint64) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Upsert(key, value)
}

func (s *Serialized) Get(key uint32) (uint64, Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Get(key)
}

func (s *Serialized) Read(key uint32, dst *uint64) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Read(key, dst)
}

func (s *Serialized) Delete(key uint32) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Delete(key)
}
