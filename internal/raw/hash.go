package raw

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content hashes. The version suffix leaves room for
// changing the snapshot layout without colliding with stored hashes.
const (
	DomainGeneration     = "typeshape/generation/v1"
	DomainTransformation = "typeshape/transformation/v1"
)

// HashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null separator keeps the domain/data boundary unambiguous.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// GenerationHash identifies a generation by its canonical snapshot bytes.
// Two generations with equal hashes are structurally identical.
func GenerationHash(snapshot []byte) string {
	return HashWithDomain(DomainGeneration, snapshot)
}
