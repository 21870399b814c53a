package model

import "strings"

// Algorithms is the closed set of algorithms a finding can report.
var Algorithms = []string{
	"AES", "RSA", "SHA-256", "MD5", "DES", "Blowfish", "ECC", "HMAC",
	"PBKDF2", "Scrypt", "ChaCha20", "Poly1305", "X25519", "Ed25519",
}

// AlgorithmTypes is the closed set of algorithm categories.
var AlgorithmTypes = []string{
	"Symmetric Encryption", "Asymmetric Encryption", "Hash Function",
	"Key Derivation", "Digital Signature", "Message Authentication",
}

// Libraries is the closed set of crypto libraries reported in statistics.
var Libraries = []string{
	"cryptography", "pycryptodome", "hashlib", "secrets", "ssl",
	"jwt", "bcrypt", "argon2", "nacl", "cryptojs",
}

// LibraryConfidences are the qualitative labels used in library statistics.
var LibraryConfidences = []string{"High", "Medium", "Low"}

// Bounds of a generated finding's confidence score.
const (
	MinFindingConfidence = 60
	MaxFindingConfidence = 99
)

// UnknownRepository is reported when no name can be taken from the repo path.
const UnknownRepository = "unknown-repo"

// RepositoryName returns the last segment of a repository URL or local path.
func RepositoryName(repoPath string) string {
	p := strings.TrimSpace(strings.ReplaceAll(repoPath, `\`, "/"))
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return UnknownRepository
	}
	return p
}

// IsKnownAlgorithm reports whether name belongs to Algorithms.
func IsKnownAlgorithm(name string) bool {
	for _, a := range Algorithms {
		if a == name {
			return true
		}
	}
	return false
}
