// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle implements the asset provenance oracle consulted by the
// exchange pools before they accept assets. An asset clears the oracle when
// it is not flagged in the local index and, if attestation signers are
// registered, when the caller presents a fresh attestation signed by one of
// them. The sweep router never talks to the oracle; pools do.
package oracle

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	luxcrypto "github.com/luxfi/crypto"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
)

// Errors - provenance oracle
var (
	ErrNotInitialized       = errors.New("oracle database not initialized")
	ErrMalformedAttestation = errors.New("malformed attestation")
	ErrAttestationExpired   = errors.New("attestation expired")
	ErrWrongSubject         = errors.New("attestation subject mismatch")
	ErrUnknownSigner        = errors.New("attestation signer not registered")
	ErrAssetFlagged         = errors.New("asset is flagged")
)

// flagPrefix namespaces the flag index inside the shared database.
var flagPrefix = []byte("oracle/flag/")

// Attestation vouches for a single asset until ValidUntil (unix seconds).
// Signature is a 65-byte compact secp256k1 signature over
// keccak256(collection || id || validUntil).
type Attestation struct {
	Collection common.Address `json:"collection"`
	Id         *big.Int       `json:"id"`
	ValidUntil uint64         `json:"validUntil"`
	Signature  []byte         `json:"signature"`
}

// Digest returns the signed message hash for an attestation's subject.
func Digest(collection common.Address, id *big.Int, validUntil uint64) []byte {
	var until [8]byte
	binary.BigEndian.PutUint64(until[:], validUntil)
	return luxcrypto.Keccak256(collection.Bytes(), common.BigToHash(id).Bytes(), until[:])
}

// Verifier checks attestations against a registered signer set and keeps a
// persistent index of flagged assets.
type Verifier struct {
	// Flag index storage
	db database.Database

	// Logger
	log log.Logger

	// Registered attestation signers
	signers map[common.Address]struct{}

	mu sync.RWMutex
}

// NewVerifier creates an oracle verifier. If db is nil the flag index is
// unavailable: reads report nothing flagged and writes fail.
func NewVerifier(db database.Database) *Verifier {
	logger := log.NewTestLogger(log.InfoLevel)
	return &Verifier{
		db:      db,
		log:     logger,
		signers: make(map[common.Address]struct{}),
	}
}

// defaultVerifier is the instance shared by the pool precompiles.
var defaultVerifier = NewVerifier(nil)

// Default returns the shared verifier instance.
func Default() *Verifier {
	return defaultVerifier
}

// SetDatabase attaches the flag index database to the shared verifier.
// This should be called during VM initialization when the database is
// available.
func SetDatabase(db database.Database) {
	defaultVerifier.mu.Lock()
	defer defaultVerifier.mu.Unlock()
	defaultVerifier.db = db
}

// =========================================================================
// Signer set
// =========================================================================

// AddSigner registers an attestation signer.
func (v *Verifier) AddSigner(signer common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.signers[signer] = struct{}{}
	v.log.Debug("oracle signer registered", "signer", signer)
}

// RemoveSigner drops an attestation signer.
func (v *Verifier) RemoveSigner(signer common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.signers, signer)
	v.log.Debug("oracle signer removed", "signer", signer)
}

// IsSigner reports whether [signer] is registered.
func (v *Verifier) IsSigner(signer common.Address) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.signers[signer]
	return ok
}

// RequiresAttestations reports whether assets need attestations to clear
// the oracle. With no signers registered only the flag index applies.
func (v *Verifier) RequiresAttestations() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.signers) > 0
}

// =========================================================================
// Flag index
// =========================================================================

func flagKey(collection common.Address, id *big.Int) []byte {
	key := make([]byte, 0, len(flagPrefix)+common.AddressLength+common.HashLength)
	key = append(key, flagPrefix...)
	key = append(key, collection.Bytes()...)
	key = append(key, common.BigToHash(id).Bytes()...)
	return key
}

// FlagAsset marks an asset as having suspect provenance.
func (v *Verifier) FlagAsset(collection common.Address, id *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.db == nil {
		return ErrNotInitialized
	}
	if err := v.db.Put(flagKey(collection, id), []byte{1}); err != nil {
		return fmt.Errorf("failed to flag asset: %w", err)
	}
	v.log.Info("asset flagged", "collection", collection, "id", id)
	return nil
}

// ClearAsset removes an asset's flag.
func (v *Verifier) ClearAsset(collection common.Address, id *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.db == nil {
		return ErrNotInitialized
	}
	if err := v.db.Delete(flagKey(collection, id)); err != nil {
		return fmt.Errorf("failed to clear asset flag: %w", err)
	}
	v.log.Info("asset flag cleared", "collection", collection, "id", id)
	return nil
}

// IsFlagged reports whether an asset is flagged. Without a database nothing
// is flagged.
func (v *Verifier) IsFlagged(collection common.Address, id *big.Int) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.db == nil {
		return false
	}
	has, err := v.db.Has(flagKey(collection, id))
	if err != nil {
		v.log.Warn("flag index read failed", "collection", collection, "id", id, "error", err)
		return false
	}
	return has
}

// FlaggedAssets lists the flagged ids of a collection.
func (v *Verifier) FlaggedAssets(collection common.Address) ([]*big.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.db == nil {
		return nil, ErrNotInitialized
	}

	prefix := append(append([]byte{}, flagPrefix...), collection.Bytes()...)
	it := v.db.NewIteratorWithPrefix(prefix)
	defer it.Release()

	var ids []*big.Int
	for it.Next() {
		key := it.Key()
		if len(key) < common.HashLength {
			continue
		}
		ids = append(ids, new(big.Int).SetBytes(key[len(key)-common.HashLength:]))
	}
	return ids, it.Error()
}

// =========================================================================
// Attestation verification
// =========================================================================

// VerifyAttestation checks that [data] is a well formed attestation for
// the given asset, unexpired at [now], and signed by a registered signer.
func (v *Verifier) VerifyAttestation(data []byte, collection common.Address, id *big.Int, now uint64) error {
	var att Attestation
	if err := json.Unmarshal(data, &att); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAttestation, err)
	}
	if att.Id == nil || len(att.Signature) != luxcrypto.SignatureLength {
		return ErrMalformedAttestation
	}
	if att.Collection != collection || att.Id.Cmp(id) != 0 {
		return ErrWrongSubject
	}
	if now > att.ValidUntil {
		return ErrAttestationExpired
	}

	digest := Digest(att.Collection, att.Id, att.ValidUntil)
	pub, err := luxcrypto.SigToPub(digest, att.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAttestation, err)
	}
	signer := luxcrypto.PubkeyToAddress(*pub)
	if !v.IsSigner(signer) {
		return fmt.Errorf("%w: %s", ErrUnknownSigner, signer)
	}

	v.log.Debug("attestation verified", "collection", collection, "id", id, "signer", signer)
	return nil
}

// Check is the pool-facing entry point: an asset clears the oracle when it
// is not flagged and, if signers are registered, [attestation] verifies at
// block time [now].
func (v *Verifier) Check(collection common.Address, id *big.Int, attestation []byte, now uint64) error {
	if v.IsFlagged(collection, id) {
		return fmt.Errorf("%w: %s id %s", ErrAssetFlagged, collection, id)
	}
	if !v.RequiresAttestations() {
		return nil
	}
	return v.VerifyAttestation(attestation, collection, id, now)
}
