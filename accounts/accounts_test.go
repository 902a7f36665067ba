package accounts

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func pk(b byte) PubKey {
	var p PubKey
	p[0] = b
	return p
}

func TestRepresentativeWeight(t *testing.T) {
	rep1 := pk(1)
	rep2 := pk(2)

	snap := NewSnapshot([]*Account{
		{Index: 0, PubKey: pk(10), Balance: uint256.NewInt(100), Representative: rep1},
		{Index: 1, PubKey: pk(11), Balance: uint256.NewInt(50), Representative: rep1},
		{Index: 2, PubKey: pk(12), Balance: uint256.NewInt(30), Representative: rep2},
	})

	assert.Equal(t, uint256.NewInt(150), snap.RepresentativeWeight(rep1))
	assert.Equal(t, uint256.NewInt(30), snap.RepresentativeWeight(rep2))
	assert.True(t, snap.RepresentativeWeight(pk(99)).IsZero())
}

func TestPrincipalRepresentativesSortedAndFiltered(t *testing.T) {
	repHigh := pk(2)
	repLow := pk(1)

	snap := NewSnapshot([]*Account{
		{Index: 0, PubKey: pk(10), Balance: uint256.NewInt(1000), Representative: repHigh},
		{Index: 1, PubKey: pk(11), Balance: uint256.NewInt(10), Representative: repLow},
	})

	threshold := uint256.NewInt(100)
	principals := snap.PrincipalRepresentatives(threshold)
	assert.Equal(t, []PubKey{repHigh}, principals)
}

func TestPrincipalRepresentativesOrdering(t *testing.T) {
	repA := pk(1)
	repB := pk(2)

	snap := NewSnapshot([]*Account{
		{Index: 0, PubKey: pk(10), Balance: uint256.NewInt(500), Representative: repB},
		{Index: 1, PubKey: pk(11), Balance: uint256.NewInt(500), Representative: repA},
	})

	principals := snap.PrincipalRepresentatives(uint256.NewInt(100))
	assert.Equal(t, []PubKey{repA, repB}, principals)
}
