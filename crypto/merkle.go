package crypto

// MerkleRoot computes the root of a binary Merkle tree over leaves,
// pairing adjacent hashes and padding an odd row with ZeroHash. Used to
// commit the ordered account table into the block's state root.
func MerkleRoot(leaves []Hash) Hash {
	switch len(leaves) {
	case 0:
		return ZeroHash
	case 1:
		return leaves[0]
	}

	row := make([]Hash, len(leaves))
	copy(row, leaves)
	if len(row)%2 != 0 {
		row = append(row, ZeroHash)
	}

	for len(row) > 1 {
		row = merkleRowUp(row)
	}
	return row[0]
}

func merkleRowUp(row []Hash) []Hash {
	next := make([]Hash, 0, (len(row)+1)/2)
	buf := make([]byte, 64)
	for i := 0; i < len(row); i += 2 {
		copy(buf[0:32], row[i][:])
		copy(buf[32:64], row[i+1][:])
		next = append(next, Sum(buf))
	}
	if len(next)%2 != 0 && len(next) > 1 {
		next = append(next, ZeroHash)
	}
	return next
}
