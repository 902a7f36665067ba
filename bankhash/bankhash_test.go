package bankhash

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"consensuscore/accounts"
	"consensuscore/crypto"
)

func acct(idx uint64, b byte, bal uint64) *accounts.Account {
	var pub accounts.PubKey
	pub[0] = b
	return &accounts.Account{Index: idx, PubKey: pub, Balance: uint256.NewInt(bal)}
}

func TestStateRootEmpty(t *testing.T) {
	snap := accounts.NewSnapshot(nil)
	assert.Equal(t, crypto.ZeroHash, StateRoot(snap))
}

func TestStateRootDeterministicAndSensitive(t *testing.T) {
	snap1 := accounts.NewSnapshot([]*accounts.Account{acct(0, 1, 100), acct(1, 2, 200)})
	snap2 := accounts.NewSnapshot([]*accounts.Account{acct(0, 1, 100), acct(1, 2, 200)})
	snap3 := accounts.NewSnapshot([]*accounts.Account{acct(0, 1, 100), acct(1, 2, 201)})

	assert.Equal(t, StateRoot(snap1), StateRoot(snap2))
	assert.NotEqual(t, StateRoot(snap1), StateRoot(snap3))
}

func TestCombineBankHashGenesis(t *testing.T) {
	delta := DeltaHash([]*accounts.Account{acct(0, 1, 100)})
	assert.Equal(t, delta, CombineBankHash(crypto.ZeroHash, delta))
}

func TestCombineBankHashChained(t *testing.T) {
	delta1 := DeltaHash([]*accounts.Account{acct(0, 1, 100)})
	delta2 := DeltaHash([]*accounts.Account{acct(1, 2, 200)})

	h1 := CombineBankHash(crypto.ZeroHash, delta1)
	h2 := CombineBankHash(h1, delta2)
	assert.NotEqual(t, h1, h2)
}
