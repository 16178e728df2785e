package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough to tell datasets apart in logs
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// DatasetHash fingerprints an uploaded table
type DatasetHash Hash

func (h DatasetHash) String() string { return Hash(h).String() }

// ComputeDatasetHash hashes headers and cells in order. Unit and record
// separators keep "a","bc" distinct from "ab","c".
func ComputeDatasetHash(headers []string, rows [][]string) DatasetHash {
	var data strings.Builder
	data.WriteString(strings.Join(headers, "\x1f"))
	for _, row := range rows {
		data.WriteByte('\x1e')
		data.WriteString(strings.Join(row, "\x1f"))
	}
	return DatasetHash(NewHash([]byte(data.String())))
}
