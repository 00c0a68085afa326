package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/polyindex/internal/model"
)

// DomainModel prefixes model hashes. The version suffix allows a later
// change of the rendering.
const DomainModel = "polyindex/model/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of the rendered snapshot.
func (s *Snapshot) Hash() (string, error) {
	canonical, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("snapshot hash: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// Hash renders m and returns its content hash.
func Hash(m *model.Model) (string, error) {
	return Render(m).Hash()
}
