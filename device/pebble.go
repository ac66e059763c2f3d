package device

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// falsePositiveRate of the presence filter in front of the database.
const falsePositiveRate = 0.01

// PebbleStore persists simulated device contents in a pebble database so a
// simulated accelerator keeps its entries across process runs. A bloom filter
// answers most lookups of absent keys without touching the database.
type PebbleStore struct {
	db     *pebble.DB
	filter *bloom.BloomFilter
	count  int
}

var _ Store = (*PebbleStore)(nil)

// OpenPebbleStore opens (or creates) the database in dir. expected sizes the
// presence filter.
func OpenPebbleStore(dir string, expected uint) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble store %s", dir)
	}
	if expected == 0 {
		expected = 1
	}

	s := &PebbleStore{
		db:     db,
		filter: bloom.NewWithEstimates(expected, falsePositiveRate),
	}

	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// load counts the stored entries and seeds the presence filter.
func (s *PebbleStore) load() error {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return errors.Wrap(err, "iterate pebble store")
	}
	for it.First(); it.Valid(); it.Next() {
		s.filter.Add(it.Key())
		s.count++
	}
	return errors.Wrap(it.Close(), "close pebble iterator")
}

func encodeKey(key uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, key)
}

func (s *PebbleStore) Get(key uint32) (uint64, bool, error) {
	k := encodeKey(key)
	if !s.filter.Test(k) {
		return 0, false, nil
	}

	val, closer, err := s.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, errors.Wrapf(err, "get key %#08x", key)
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, false, errors.Errorf("key %#08x: corrupt value of %d bytes", key, len(val))
	}
	return binary.LittleEndian.Uint64(val), true, nil
}

func (s *PebbleStore) Put(key uint32, value uint64) error {
	_, exists, err := s.Get(key)
	if err != nil {
		return err
	}

	k := encodeKey(key)
	if err := s.db.Set(k, binary.LittleEndian.AppendUint64(nil, value), pebble.Sync); err != nil {
		return errors.Wrapf(err, "set key %#08x", key)
	}
	s.filter.Add(k)
	if !exists {
		s.count++
	}
	return nil
}

func (s *PebbleStore) Delete(key uint32) (bool, error) {
	_, exists, err := s.Get(key)
	if err != nil || !exists {
		return false, err
	}

	if err := s.db.Delete(encodeKey(key), pebble.Sync); err != nil {
		return false, errors.Wrapf(err, "delete key %#08x", key)
	}
	s.count--
	return true, nil
}

func (s *PebbleStore) Len() int {
	return s.count
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
