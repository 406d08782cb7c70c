// SPDX-License-Identifier: MPL-2.0

package modrinth

import "fmt"

// Hashes is the hash object attached to every remote file descriptor.
type Hashes struct {
	Sha1   string `json:"sha1"`
	Sha512 string `json:"sha512"`
}

// VersionFile is one downloadable artifact of a project version. A
// version may list several (mirrors, classifier jars); Primary marks
// the canonical one.
type VersionFile struct {
	Hashes   Hashes `json:"hashes"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Primary  bool   `json:"primary"`
	Size     int64  `json:"size"`
}

// Version is a project version as returned by the version-files lookup.
type Version struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"project_id"`
	Name      string        `json:"name"`
	Files     []VersionFile `json:"files"`
}

// FileBySha512 returns the first file whose strong hash equals hash.
// Matching on the queried hash rather than Primary guards against
// versions whose primary artifact is not the one we have locally.
func (v Version) FileBySha512(hash string) (VersionFile, bool) {
	for _, f := range v.Files {
		if f.Hashes.Sha512 == hash {
			return f, true
		}
	}
	return VersionFile{}, false
}

// APIError is a non-2xx response from the Modrinth API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("modrinth api error (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("modrinth api error (status %d)", e.StatusCode)
}
