// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"testing"

	luxcrypto "github.com/luxfi/crypto"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

var testCollection = common.HexToAddress("0xc000000000000000000000000000000000000001")

func newSigner(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := luxcrypto.GenerateKey()
	require.NoError(t, err)
	return key, luxcrypto.PubkeyToAddress(key.PublicKey)
}

func makeAttestation(t *testing.T, key *ecdsa.PrivateKey, collection common.Address, id *big.Int, validUntil uint64) []byte {
	t.Helper()
	sig, err := luxcrypto.Sign(Digest(collection, id, validUntil), key)
	require.NoError(t, err)
	data, err := json.Marshal(&Attestation{
		Collection: collection,
		Id:         id,
		ValidUntil: validUntil,
		Signature:  sig,
	})
	require.NoError(t, err)
	return data
}

func TestDigest(t *testing.T) {
	id := big.NewInt(7)
	d := Digest(testCollection, id, 1000)

	require.Len(t, d, common.HashLength)
	require.Equal(t, d, Digest(testCollection, id, 1000))
	require.NotEqual(t, d, Digest(testCollection, big.NewInt(8), 1000))
	require.NotEqual(t, d, Digest(testCollection, id, 1001))

	other := common.HexToAddress("0xc000000000000000000000000000000000000002")
	require.NotEqual(t, d, Digest(other, id, 1000))
}

func TestVerifyAttestation(t *testing.T) {
	v := NewVerifier(memdb.New())
	key, signer := newSigner(t)
	v.AddSigner(signer)

	id := big.NewInt(1)
	att := makeAttestation(t, key, testCollection, id, 2000)

	require.NoError(t, v.VerifyAttestation(att, testCollection, id, 1500))

	t.Run("expired", func(t *testing.T) {
		err := v.VerifyAttestation(att, testCollection, id, 2001)
		require.ErrorIs(t, err, ErrAttestationExpired)
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		require.NoError(t, v.VerifyAttestation(att, testCollection, id, 2000))
	})

	t.Run("wrong collection", func(t *testing.T) {
		other := common.HexToAddress("0xc000000000000000000000000000000000000002")
		err := v.VerifyAttestation(att, other, id, 1500)
		require.ErrorIs(t, err, ErrWrongSubject)
	})

	t.Run("wrong id", func(t *testing.T) {
		err := v.VerifyAttestation(att, testCollection, big.NewInt(2), 1500)
		require.ErrorIs(t, err, ErrWrongSubject)
	})

	t.Run("unknown signer", func(t *testing.T) {
		strangerKey, _ := newSigner(t)
		stray := makeAttestation(t, strangerKey, testCollection, id, 2000)
		err := v.VerifyAttestation(stray, testCollection, id, 1500)
		require.ErrorIs(t, err, ErrUnknownSigner)
	})
}

func TestVerifyAttestationMalformed(t *testing.T) {
	v := NewVerifier(memdb.New())
	key, signer := newSigner(t)
	v.AddSigner(signer)
	id := big.NewInt(1)

	t.Run("not json", func(t *testing.T) {
		err := v.VerifyAttestation([]byte("not json"), testCollection, id, 0)
		require.ErrorIs(t, err, ErrMalformedAttestation)
	})

	t.Run("missing id", func(t *testing.T) {
		data, err := json.Marshal(&Attestation{Collection: testCollection, ValidUntil: 2000, Signature: make([]byte, luxcrypto.SignatureLength)})
		require.NoError(t, err)
		require.ErrorIs(t, v.VerifyAttestation(data, testCollection, id, 0), ErrMalformedAttestation)
	})

	t.Run("truncated signature", func(t *testing.T) {
		sig, err := luxcrypto.Sign(Digest(testCollection, id, 2000), key)
		require.NoError(t, err)
		data, err := json.Marshal(&Attestation{Collection: testCollection, Id: id, ValidUntil: 2000, Signature: sig[:32]})
		require.NoError(t, err)
		require.ErrorIs(t, v.VerifyAttestation(data, testCollection, id, 0), ErrMalformedAttestation)
	})
}

func TestSignerSet(t *testing.T) {
	v := NewVerifier(nil)
	_, signer := newSigner(t)

	require.False(t, v.RequiresAttestations())
	require.False(t, v.IsSigner(signer))

	v.AddSigner(signer)
	require.True(t, v.RequiresAttestations())
	require.True(t, v.IsSigner(signer))

	v.RemoveSigner(signer)
	require.False(t, v.RequiresAttestations())
	require.False(t, v.IsSigner(signer))
}

func TestFlagIndex(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	v := NewVerifier(db)
	id := big.NewInt(42)

	require.False(t, v.IsFlagged(testCollection, id))
	require.NoError(t, v.FlagAsset(testCollection, id))
	require.True(t, v.IsFlagged(testCollection, id))

	require.NoError(t, v.ClearAsset(testCollection, id))
	require.False(t, v.IsFlagged(testCollection, id))
}

func TestFlaggedAssets(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	v := NewVerifier(db)
	other := common.HexToAddress("0xc000000000000000000000000000000000000002")

	for _, id := range []int64{5, 9, 13} {
		require.NoError(t, v.FlagAsset(testCollection, big.NewInt(id)))
	}
	require.NoError(t, v.FlagAsset(other, big.NewInt(77)))

	ids, err := v.FlaggedAssets(testCollection)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	seen := make(map[int64]bool)
	for _, id := range ids {
		seen[id.Int64()] = true
	}
	require.True(t, seen[5] && seen[9] && seen[13])
}

func TestFlagIndexWithoutDatabase(t *testing.T) {
	v := NewVerifier(nil)
	id := big.NewInt(1)

	require.False(t, v.IsFlagged(testCollection, id))
	require.ErrorIs(t, v.FlagAsset(testCollection, id), ErrNotInitialized)
	require.ErrorIs(t, v.ClearAsset(testCollection, id), ErrNotInitialized)
	_, err := v.FlaggedAssets(testCollection)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestCheck(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	v := NewVerifier(db)
	id := big.NewInt(1)

	t.Run("open by default", func(t *testing.T) {
		require.NoError(t, v.Check(testCollection, id, nil, 0))
	})

	t.Run("flagged asset fails regardless of signers", func(t *testing.T) {
		require.NoError(t, v.FlagAsset(testCollection, id))
		require.ErrorIs(t, v.Check(testCollection, id, nil, 0), ErrAssetFlagged)
		require.NoError(t, v.ClearAsset(testCollection, id))
	})

	t.Run("attestation required once signers exist", func(t *testing.T) {
		key, signer := newSigner(t)
		v.AddSigner(signer)
		defer v.RemoveSigner(signer)

		require.Error(t, v.Check(testCollection, id, nil, 1500))

		att := makeAttestation(t, key, testCollection, id, 2000)
		require.NoError(t, v.Check(testCollection, id, att, 1500))
		require.ErrorIs(t, v.Check(testCollection, id, att, 2001), ErrAttestationExpired)
	})
}

func BenchmarkVerifyAttestation(b *testing.B) {
	v := NewVerifier(nil)
	key, err := luxcrypto.GenerateKey()
	if err != nil {
		b.Fatal(err)
	}
	v.AddSigner(luxcrypto.PubkeyToAddress(key.PublicKey))

	id := big.NewInt(1)
	sig, err := luxcrypto.Sign(Digest(testCollection, id, 2000), key)
	if err != nil {
		b.Fatal(err)
	}
	data, err := json.Marshal(&Attestation{Collection: testCollection, Id: id, ValidUntil: 2000, Signature: sig})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := v.VerifyAttestation(data, testCollection, id, 1500); err != nil {
			b.Fatal(err)
		}
	}
}
