package history

import (
	"strconv"

	"github.com/minio/highwayhash"
)

var fingerprintKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Fingerprint hashes file content. Watch mode compares fingerprints to skip
// files whose content did not change.
func Fingerprint(data []byte) (string, error) {
	hash, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return "", err
	}
	if _, err := hash.Write(data); err != nil {
		return "", err
	}
	return strconv.FormatUint(hash.Sum64(), 16), nil
}
