package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed hashing. The version suffix
// leaves room for an algorithm migration without colliding with old ids.
const (
	DomainCommand = "jve/command/v1"
	DomainState   = "jve/state/v1"
)

// HashDomain computes SHA256(domain || 0x00 || data) as a lowercase hex
// string. The null separator removes any ambiguity between the domain
// and the payload, so content can never collide across domains.
func HashDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CommandHash computes the content-addressed id of a logged command from
// its position in the tree and its full parameters. Replaying the same
// command at the same position always yields the same id.
func CommandHash(seq, parentSeq int64, cmdType string, params Object) (string, error) {
	obj := Object{
		"seq":    Int(seq),
		"parent": Int(parentSeq),
		"type":   String(cmdType),
		"params": params,
	}
	canonical, err := Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("command hash: %w", err)
	}
	return HashDomain(DomainCommand, canonical), nil
}

// MustCommandHash is CommandHash for inputs known to be valid; it panics
// on marshal failure. Test use only.
func MustCommandHash(seq, parentSeq int64, cmdType string, params Object) string {
	id, err := CommandHash(seq, parentSeq, cmdType, params)
	if err != nil {
		panic(err)
	}
	return id
}
