// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"bytes"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Allow-list trees are blake3 Merkle trees with domain-separated leaf and
// node hashes. Pairs are sorted before hashing so proofs carry no
// left/right orientation.
const (
	leafDomain = byte(0x00)
	nodeDomain = byte(0x01)
)

// LeafHash hashes an allow-list entry payload into a tree leaf.
func LeafHash(payload []byte) common.Hash {
	h := blake3.New()
	h.Write([]byte{leafDomain})
	h.Write(payload)
	var out common.Hash
	h.Digest().Read(out[:])
	return out
}

func nodeHash(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	h := blake3.New()
	h.Write([]byte{nodeDomain})
	h.Write(a[:])
	h.Write(b[:])
	var out common.Hash
	h.Digest().Read(out[:])
	return out
}

// VerifyProof checks a single-leaf inclusion proof against [root].
func VerifyProof(root common.Hash, leaf common.Hash, proof []common.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = nodeHash(computed, sibling)
	}
	return computed == root
}

// MultiProof proves several leaves at once. Flags drive the rebuild: true
// consumes the next pending leaf/hash as the sibling, false consumes the
// next proof node.
type MultiProof struct {
	Nodes []common.Hash `json:"nodes"`
	Flags []bool        `json:"flags"`
}

// VerifyMultiProof checks a multi-leaf inclusion proof against [root].
// Leaves must be supplied in the order the proof was built over.
func VerifyMultiProof(root common.Hash, leaves []common.Hash, proof MultiProof) bool {
	totalHashes := len(proof.Flags)
	if len(leaves)+len(proof.Nodes) != totalHashes+1 {
		return false
	}
	if totalHashes == 0 {
		if len(leaves) == 1 {
			return leaves[0] == root
		}
		return len(proof.Nodes) == 1 && proof.Nodes[0] == root
	}

	hashes := make([]common.Hash, totalHashes)
	var leafPos, hashPos, proofPos int
	valid := true

	next := func(i int) common.Hash {
		if leafPos < len(leaves) {
			h := leaves[leafPos]
			leafPos++
			return h
		}
		// Only hashes computed on earlier rounds may be consumed.
		if hashPos >= i {
			valid = false
			return common.Hash{}
		}
		h := hashes[hashPos]
		hashPos++
		return h
	}

	for i := 0; i < totalHashes; i++ {
		a := next(i)
		var b common.Hash
		if proof.Flags[i] {
			b = next(i)
		} else {
			if proofPos >= len(proof.Nodes) {
				return false
			}
			b = proof.Nodes[proofPos]
			proofPos++
		}
		hashes[i] = nodeHash(a, b)
	}

	return valid && hashes[totalHashes-1] == root
}
