// Package chain implements the Aptos fullnode REST client used by the swap
// pipeline: balance reads, entry-function transaction submission with local
// ed25519 signing, and settlement waits. Everything callers need is exposed
// behind small interfaces defined at the point of use, so the whole package
// can be swapped for fakes in tests.
package chain

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Account is a local ed25519 signer for the custodial Aptos account.
type Account struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
}

// NewAccount parses a hex-encoded ed25519 private key (seed or full key, with
// or without 0x prefix) and derives the account's on-chain address
// (sha3-256 over the public key followed by the single-signer scheme byte).
func NewAccount(hexKey string) (*Account, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}

	pub := priv.Public().(ed25519.PublicKey)

	h := sha3.New256()
	h.Write(pub)
	h.Write([]byte{0x00}) // single-signer authentication scheme
	addr := "0x" + hex.EncodeToString(h.Sum(nil))

	return &Account{priv: priv, pub: pub, address: addr}, nil
}

// Address returns the derived account address, 0x-prefixed.
func (a *Account) Address() string { return a.address }

// PublicKeyHex returns the hex-encoded public key, 0x-prefixed.
func (a *Account) PublicKeyHex() string { return "0x" + hex.EncodeToString(a.pub) }

// Sign signs an arbitrary message (the BCS signing message returned by the
// node's encode_submission endpoint) and returns the hex signature.
func (a *Account) Sign(message []byte) string {
	return "0x" + hex.EncodeToString(ed25519.Sign(a.priv, message))
}
