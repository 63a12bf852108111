package encoding

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Serializable provides a clean, simple interface for serializing and deserializing values.
type Serializable interface {
	Serialize() ([]byte, error)
	Deserialize([]byte) error
}

// Fingerprint hashes the serialized form of s. Two values with the same
// serialization share a fingerprint.
func Fingerprint(s Serializable) (uint64, error) {
	data, err := s.Serialize()
	if err != nil {
		return 0, fmt.Errorf("fingerprint: %w", err)
	}
	return xxhash.Sum64(data), nil
}

// Checksum is the hex form of an xxhash digest of data.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
