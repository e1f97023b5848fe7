// Package did implements the content-addressed identifiers used for
// packages and constructs. A Did is a 128-bit BLAKE2b digest of the
// components that define an entity's identity (source location, block kind,
// name), so identifiers are stable across runs as long as the source is.
package did

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Size is the digest width in bytes.
const Size = 16

// Did is a content-hash identity. The zero value is the synthetic graph
// root's identity.
type Did [Size]byte

// FromComponents hashes the given components into a Did. Components are
// length-prefix free; callers are expected to pass naturally delimited
// values (paths, labels) the way the construct indexer does.
func FromComponents(components ...string) Did {
	h, err := blake2b.New(Size, nil)
	if err != nil {
		// blake2b only errors on invalid key/size, both fixed here.
		panic(err)
	}
	for _, c := range components {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}
	var d Did
	copy(d[:], h.Sum(nil))
	return d
}

// FromBytes hashes raw bytes into a Did.
func FromBytes(b []byte) Did {
	sum := blake2b.Sum256(b)
	var d Did
	copy(d[:], sum[:Size])
	return d
}

// FromHexString parses a hex-rendered Did. Malformed or truncated input
// yields the zero Did.
func FromHexString(s string) Did {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != Size {
		return Did{}
	}
	var d Did
	copy(d[:], b)
	return d
}

// Zero returns the synthetic root identity.
func Zero() Did {
	return Did{}
}

// IsZero reports whether the Did is the synthetic root identity.
func (d Did) IsZero() bool {
	return d == Did{}
}

// String renders the digest as lowercase hex.
func (d Did) String() string {
	return hex.EncodeToString(d[:])
}

// ConstructDid identifies a construct.
type ConstructDid struct{ Did }

// PackageDid identifies a package.
type PackageDid struct{ Did }

// NewConstructDid wraps a Did as a construct identity.
func NewConstructDid(d Did) ConstructDid { return ConstructDid{d} }

// NewPackageDid wraps a Did as a package identity.
func NewPackageDid(d Did) PackageDid { return PackageDid{d} }
