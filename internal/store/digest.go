package store

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// DomainPrompt separates prompt digests from any other hash in the log.
const DomainPrompt = "resona/prompt/v1"

// PromptDigest returns SHA256(DomainPrompt || 0x00 || NFC(prompt)) in hex.
// Canonically equivalent spellings of a prompt share a digest.
func PromptDigest(prompt string) string {
	h := sha256.New()
	h.Write([]byte(DomainPrompt))
	h.Write([]byte{0x00})
	h.Write(norm.NFC.Bytes([]byte(prompt)))
	return hex.EncodeToString(h.Sum(nil))
}
