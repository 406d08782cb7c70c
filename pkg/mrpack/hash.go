// SPDX-License-Identifier: MPL-2.0

package mrpack

import (
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FileHashes holds the two hash variants carried by a pack index entry.
// Sha512 is the strong hash used for remote lookups; Sha1 is the
// secondary hash kept for compatibility with older consumers.
type FileHashes struct {
	Sha1   string
	Sha512 string
	Size   int64
}

// HashFile computes both hash variants of the file at path in a single
// streaming pass.
func HashFile(path string) (FileHashes, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileHashes{}, fmt.Errorf("open %s for hashing: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	h1 := sha1.New()
	h512 := sha512.New()

	size, err := io.Copy(io.MultiWriter(h1, h512), f)
	if err != nil {
		return FileHashes{}, fmt.Errorf("read %s for hashing: %w", path, err)
	}

	return FileHashes{
		Sha1:   hex.EncodeToString(h1.Sum(nil)),
		Sha512: hex.EncodeToString(h512.Sum(nil)),
		Size:   size,
	}, nil
}

// HashFileSha512 computes only the strong hash of the file at path.
// Used for the pending-hash queue, where the secondary hash comes back
// from the remote lookup instead.
func HashFileSha512(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s for hashing: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	h := sha512.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("read %s for hashing: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}
