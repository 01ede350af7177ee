package mpc

import (
	"encoding/binary"

	"github.com/drand/kyber"
	"github.com/drand/kyber/proof/dleq"
	kyber_share "github.com/drand/kyber/share"
)

// Juror-side helpers for the kyber threshold scheme. The dealer role is played
// by whichever party initializes the MPC session; in tests it doubles as all
// jurors.

// TallyKeys is the dealer output: per-juror secret shares plus the group
// public key the tally is encrypted under.
type TallyKeys struct {
	suite        dleq.Suite
	GroupKey     []byte
	PriShares    []*kyber_share.PriShare
	PublicShares [][]byte
}

// DealTallyKeys splits a fresh decryption key into total shares with the given
// recovery threshold.
func DealTallyKeys(threshold, total int) (*TallyKeys, error) {
	suite := blsSuite()
	secret := suite.Scalar().Pick(suite.RandomStream())
	poly := kyber_share.NewPriPoly(suite, threshold, secret, suite.RandomStream())
	priShares := poly.Shares(total)

	groupKey, err := suite.Point().Mul(secret, nil).MarshalBinary()
	if err != nil {
		return nil, err
	}
	publicShares := make([][]byte, total)
	for i, ps := range priShares {
		publicShares[i], err = suite.Point().Mul(ps.V, nil).MarshalBinary()
		if err != nil {
			return nil, err
		}
	}
	return &TallyKeys{
		suite:        suite,
		GroupKey:     groupKey,
		PriShares:    priShares,
		PublicShares: publicShares,
	}, nil
}

// EncryptTally encrypts (votesFor, votesAgainst) under the group key as two
// exponential-ElGamal ciphertexts.
func EncryptTally(groupKey []byte, votesFor, votesAgainst uint64) ([]byte, error) {
	suite := blsSuite()
	pub := suite.Point()
	if err := pub.UnmarshalBinary(groupKey); err != nil {
		return nil, ErrMalformedTally
	}

	out := make([]byte, 0, 4*suite.PointLen())
	for _, m := range []uint64{votesFor, votesAgainst} {
		r := suite.Scalar().Pick(suite.RandomStream())
		c1 := suite.Point().Mul(r, nil)
		mScalar := suite.Scalar().SetInt64(int64(m))
		c2 := suite.Point().Add(suite.Point().Mul(mScalar, nil), suite.Point().Mul(r, pub))

		c1Bytes, err := c1.MarshalBinary()
		if err != nil {
			return nil, err
		}
		c2Bytes, err := c2.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, c1Bytes...)
		out = append(out, c2Bytes...)
	}
	return out, nil
}

// PartialDecrypt applies a juror's secret share to both ciphertexts and
// produces the DLEQ proofs the combiner verifies.
func PartialDecrypt(priShare *kyber_share.PriShare, encryptedTally []byte) (decryptionShare, proof []byte, err error) {
	suite := blsSuite()
	pointLen := suite.PointLen()
	if len(encryptedTally) != 4*pointLen {
		return nil, nil, ErrMalformedTally
	}

	decryptionShare = make([]byte, 4, 4+2*pointLen)
	binary.LittleEndian.PutUint32(decryptionShare, uint32(priShare.I))

	for _, offset := range []int{0, 2 * pointLen} {
		c1 := suite.Point()
		if err := c1.UnmarshalBinary(encryptedTally[offset : offset+pointLen]); err != nil {
			return nil, nil, ErrMalformedTally
		}
		dleqProof, _, xH, err := dleq.NewDLEQProof(suite, suite.Point().Base(), c1, priShare.V)
		if err != nil {
			return nil, nil, err
		}
		uBytes, err := xH.MarshalBinary()
		if err != nil {
			return nil, nil, err
		}
		decryptionShare = append(decryptionShare, uBytes...)

		proofBytes, err := marshalProof(suite, dleqProof)
		if err != nil {
			return nil, nil, err
		}
		proof = append(proof, proofBytes...)
	}
	return decryptionShare, proof, nil
}

func marshalProof(suite dleq.Suite, p *dleq.Proof) ([]byte, error) {
	out := make([]byte, 0, 2*suite.ScalarLen()+2*suite.PointLen())
	for _, m := range []kyber.Marshaling{p.C, p.R, p.VG, p.VH} {
		b, err := m.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}
