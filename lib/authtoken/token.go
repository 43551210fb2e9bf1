// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package authtoken issues and opens the session tokens Auth hands to
// clients and Jump and Game hosts accept.
//
// A token is the base64url text of
//
//	[Version: 1 byte] [Nonce: 24 bytes] [XChaCha20-Poly1305 ciphertext]
//
// sealing a CBOR payload {SessionID, Claims, IssuedAt}. Claims travel
// as an encoded wire dictionary. Every tier that shares the secret and
// salt derives the same key with HKDF-SHA256, so a token issued by Auth
// opens on any Jump or Game host.
//
// A token is valid while its issue time is within the TTL of the
// opener's clock, in either direction, so hosts with skewed clocks
// reject tokens from the future too.
package authtoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/codec"
	"github.com/bureau-foundation/loadbalancer/lib/secret"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// Version is the first byte of every token and part of the AEAD
// additional data.
const Version byte = 0x01

// KeySize is the size of derived keys.
const KeySize = 32

var (
	hkdfInfoSealing     = []byte("loadbalancer.session-token.v1")
	hkdfInfoFingerprint = []byte("loadbalancer.session-token.fingerprint.v1")
)

var (
	// ErrInvalid covers every token that does not decode, authenticate
	// or parse.
	ErrInvalid = errors.New("authtoken: invalid token")

	// ErrExpired is returned for an authentic token outside the TTL.
	ErrExpired = errors.New("authtoken: token expired")
)

// Payload is what a token carries.
type Payload struct {
	SessionID uuid.UUID
	Claims    wire.Map
	IssuedAt  time.Time
}

type envelope struct {
	SessionID []byte `cbor:"1,keyasint"`
	Claims    []byte `cbor:"2,keyasint"`
	IssuedAt  int64  `cbor:"3,keyasint"`
}

// Sealer issues and opens tokens under one derived key. It is safe for
// concurrent use.
type Sealer struct {
	sealingKey     *secret.Buffer
	fingerprintKey *secret.Buffer
	ttl            time.Duration
	clock          clock.Clock
}

// NewSealer derives the sealing and fingerprint keys from sharedSecret
// and salt. The secret is borrowed and not closed. A non-positive ttl
// disables the age check.
func NewSealer(sharedSecret *secret.Buffer, salt string, ttl time.Duration, c clock.Clock) (*Sealer, error) {
	if sharedSecret == nil || sharedSecret.Len() == 0 {
		return nil, errors.New("authtoken: shared secret is empty")
	}
	sealingKey, err := deriveKey(sharedSecret.Bytes(), salt, hkdfInfoSealing)
	if err != nil {
		return nil, err
	}
	fingerprintKey, err := deriveKey(sharedSecret.Bytes(), salt, hkdfInfoFingerprint)
	if err != nil {
		sealingKey.Close()
		return nil, err
	}
	return &Sealer{sealingKey: sealingKey, fingerprintKey: fingerprintKey, ttl: ttl, clock: c}, nil
}

func deriveKey(sharedSecret []byte, salt string, info []byte) (*secret.Buffer, error) {
	derived := make([]byte, KeySize)
	reader := hkdf.New(sha256.New, sharedSecret, []byte(salt), info)
	if _, err := io.ReadFull(reader, derived); err != nil {
		return nil, fmt.Errorf("authtoken: deriving key: %w", err)
	}
	return secret.NewFromBytes(derived)
}

// Close releases the derived keys.
func (s *Sealer) Close() error {
	return errors.Join(s.sealingKey.Close(), s.fingerprintKey.Close())
}

// TTL returns the validity window.
func (s *Sealer) TTL() time.Duration { return s.ttl }

// Issue seals a new session for claims, stamped with a fresh session
// id and the current time.
func (s *Sealer) Issue(claims wire.Map) (string, Payload, error) {
	payload := Payload{
		SessionID: uuid.New(),
		Claims:    claims.Clone(),
		IssuedAt:  s.clock.Now(),
	}
	token, err := s.Seal(payload)
	if err != nil {
		return "", Payload{}, err
	}
	return token, payload, nil
}

// Seal encrypts payload as given.
func (s *Sealer) Seal(payload Payload) (string, error) {
	claims, err := wire.Encode(payload.Claims)
	if err != nil {
		return "", fmt.Errorf("authtoken: encoding claims: %w", err)
	}
	plaintext, err := codec.Marshal(envelope{
		SessionID: payload.SessionID[:],
		Claims:    claims,
		IssuedAt:  payload.IssuedAt.UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("authtoken: encoding payload: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.sealingKey.Bytes())
	if err != nil {
		return "", fmt.Errorf("authtoken: creating XChaCha20-Poly1305 cipher: %w", err)
	}
	blob := make([]byte, 1+chacha20poly1305.NonceSizeX, 1+chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	blob[0] = Version
	if _, err := io.ReadFull(rand.Reader, blob[1:]); err != nil {
		return "", fmt.Errorf("authtoken: generating nonce: %w", err)
	}
	blob = aead.Seal(blob, blob[1:], plaintext, blob[:1])
	return base64.RawURLEncoding.EncodeToString(blob), nil
}

// Open decrypts token and checks its age. An authentic but stale token
// returns its payload together with ErrExpired.
func (s *Sealer) Open(token string) (Payload, error) {
	plaintext, err := s.Decrypt(token)
	if err != nil {
		return Payload{}, err
	}

	var sealed envelope
	if err := codec.Unmarshal(plaintext, &sealed); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	sessionID, err := uuid.FromBytes(sealed.SessionID)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: session id: %v", ErrInvalid, err)
	}
	claims, err := wire.Decode(sealed.Claims)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: claims: %v", ErrInvalid, err)
	}
	payload := Payload{SessionID: sessionID, Claims: claims, IssuedAt: time.UnixMilli(sealed.IssuedAt).UTC()}

	if s.ttl > 0 {
		age := s.clock.Now().Sub(payload.IssuedAt)
		if age > s.ttl || age < -s.ttl {
			return payload, ErrExpired
		}
	}
	return payload, nil
}

// Decrypt authenticates token and returns the CBOR envelope it
// seals, without decoding it or checking its age.
func (s *Sealer) Decrypt(token string) ([]byte, error) {
	blob, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	aead, err := chacha20poly1305.NewX(s.sealingKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("authtoken: creating XChaCha20-Poly1305 cipher: %w", err)
	}
	header := 1 + aead.NonceSize()
	if len(blob) < header+aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrInvalid, len(blob))
	}
	if blob[0] != Version {
		return nil, fmt.Errorf("%w: unknown version %d", ErrInvalid, blob[0])
	}
	plaintext, err := aead.Open(nil, blob[1:header], blob[header:], blob[:1])
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrInvalid)
	}
	return plaintext, nil
}

// Fingerprint identifies a token in logs without revealing it: the
// first 8 bytes of a keyed BLAKE3 hash, in hex.
func (s *Sealer) Fingerprint(token string) string {
	hasher, err := blake3.NewKeyed(s.fingerprintKey.Bytes())
	if err != nil {
		panic("authtoken: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.WriteString(token)
	return hex.EncodeToString(hasher.Sum(nil)[:8])
}
