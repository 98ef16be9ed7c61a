// Package crypto provides the hash primitives used by the ledger.
package crypto

import (
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
	sha256 "github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
)

// SHA256 computes the SHA-256 digest of data. Block hashes and proof-of-work
// checks are defined over this digest.
func SHA256(data []byte) types.Hash {
	return sha256.Sum256(data)
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	return SHA256(data).String()
}

// ID computes a BLAKE3-256 content identifier. Used for transaction IDs,
// which are index keys only and never feed into a block hash.
func ID(data []byte) types.Hash {
	return blake3.Sum256(data)
}
