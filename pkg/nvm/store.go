package nvm

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"log"
	"math"
)

// Compiled-in calibration defaults, measured on the reference load cell.
const (
	DefaultCalibrationM float32 = 4.6750380809321235e-06
	DefaultCalibrationB int32   = -100598
)

// On-page layout: the cache struct {m float32 LE, b int32 LE} packed at
// offset 0, and a CRC-32C of the cache bytes in the last four bytes of the
// page, little-endian.
const (
	cacheSize    = 8
	checksumSize = 4
	// MinPageSize is the smallest page that fits the cache and checksum.
	MinPageSize = cacheSize + checksumSize
)

// castagnoli is the CRC-32/ISCSI polynomial table. hash/crc32 is the
// standard Go implementation of this checksum; no example in the corpus
// carries a separate CRC dependency.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Store is a RAM cache of the calibration constants kept in one flash page.
// Reads are served from RAM; writes mark the cache dirty and hit flash only
// on Flush. A checksum mismatch at open time is the expected cold-boot and
// corruption-recovery path: the cache silently resets to the compiled-in
// defaults.
//
// The store is owned by the measurement task and is not safe for concurrent
// use.
type Store struct {
	flash Flash
	m     float32
	b     int32
	dirty bool
}

// Open reads the page and validates its checksum, falling back to defaults
// on mismatch. Only I/O failures return an error.
func Open(flash Flash) (*Store, error) {
	if flash.Size() < MinPageSize {
		return nil, fmt.Errorf("nvm: page size %d below minimum %d", flash.Size(), MinPageSize)
	}
	page := make([]byte, flash.Size())
	if err := flash.Read(page); err != nil {
		return nil, err
	}

	s := &Store{flash: flash}
	stored := binary.LittleEndian.Uint32(page[len(page)-checksumSize:])
	computed := crc32.Checksum(page[:cacheSize], castagnoli)
	if stored != computed {
		log.Printf("nvm: checksum mismatch, loading default calibration")
		s.m = DefaultCalibrationM
		s.b = DefaultCalibrationB
		return s, nil
	}
	s.m = math.Float32frombits(binary.LittleEndian.Uint32(page[0:4]))
	s.b = int32(binary.LittleEndian.Uint32(page[4:8]))
	return s, nil
}

// ReadCalM returns the cached calibration slope.
func (s *Store) ReadCalM() float32 { return s.m }

// ReadCalB returns the cached calibration offset.
func (s *Store) ReadCalB() int32 { return s.b }

// WriteCalM updates the cached slope.
func (s *Store) WriteCalM(m float32) {
	s.m = m
	s.dirty = true
}

// WriteCalB updates the cached offset.
func (s *Store) WriteCalB(b int32) {
	s.b = b
	s.dirty = true
}

// Flush persists the cache: erase the page, rewrite the cache bytes, then
// write a fresh checksum. A clean cache is a no-op. Any error leaves the
// cache dirty; the device must not continue on stale flash contents, so
// callers treat a failed flush as fatal.
func (s *Store) Flush() error {
	if !s.dirty {
		return nil
	}

	var cache [cacheSize]byte
	binary.LittleEndian.PutUint32(cache[0:4], math.Float32bits(s.m))
	binary.LittleEndian.PutUint32(cache[4:8], uint32(s.b))
	var sum [checksumSize]byte
	binary.LittleEndian.PutUint32(sum[:], crc32.Checksum(cache[:], castagnoli))

	if err := s.flash.Erase(); err != nil {
		return fmt.Errorf("nvm: erase: %w", err)
	}
	if err := s.flash.WriteAt(0, cache[:]); err != nil {
		return fmt.Errorf("nvm: write cache: %w", err)
	}
	if err := s.flash.WriteAt(s.flash.Size()-checksumSize, sum[:]); err != nil {
		return fmt.Errorf("nvm: write checksum: %w", err)
	}
	s.dirty = false
	return nil
}
