package vtree

import "github.com/cespare/xxhash/v2"

// checksumBytes computes the content hash WritableTree attaches to an
// Entry on write. xxhash is a fast, non-cryptographic hash; write_file only
// needs change detection, not collision resistance, so there is no
// reason to pay for SHA-256 here.
func checksumBytes(data []byte) uint64 {
	return xxhash.Sum64(data)
}
