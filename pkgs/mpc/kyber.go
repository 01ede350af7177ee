package mpc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/drand/kyber"
	kyber_bls12381 "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/proof/dleq"
	kyber_share "github.com/drand/kyber/share"
	"github.com/ethereum/go-ethereum/common"

	"github.com/solsafe/tribunal/pkgs/crypto"
)

// Threshold ElGamal over BLS12-381 G1. The tally is a pair of ciphertexts
// (approvals and rejections), each C = (r*G, m*G + r*P) for group key P. A
// juror holding secret share x_i publishes U_i = x_i * C1 with a DLEQ proof
// binding U_i to their public share P_i = x_i * G. Lagrange recovery of the
// U_i yields S = x * C1, and m*G = C2 - S is decoded by scanning the small
// exponent range bounded by the juror count.

var (
	ErrMalformedTally   = errors.New("malformed encrypted tally")
	ErrMalformedPartial = errors.New("malformed partial decryption")
	ErrInvalidDleqProof = errors.New("invalid decryption proof")
	ErrUnknownJuror     = errors.New("partial decryption from juror without key share")
	ErrTallyDecode      = errors.New("tally outside decodable range")
)

func blsSuite() dleq.Suite {
	return kyber_bls12381.NewBLS12381Suite().G1().(dleq.Suite)
}

// KyberShareVerifier checks that a public share is a valid G1 point and that
// the submitted commitment binds it.
type KyberShareVerifier struct {
	suite dleq.Suite
}

func NewKyberShareVerifier() *KyberShareVerifier {
	return &KyberShareVerifier{suite: blsSuite()}
}

func (v *KyberShareVerifier) VerifyShare(publicShare []byte, commitment common.Hash) error {
	point := v.suite.Point()
	if err := point.UnmarshalBinary(publicShare); err != nil {
		return fmt.Errorf("public share is not a valid point: %w", err)
	}
	if commitment != common.Hash(crypto.ShareCommitment(publicShare)) {
		return errors.New("share commitment mismatch")
	}
	return nil
}

// KyberCombiner implements the Combiner boundary with kyber threshold
// recovery.
type KyberCombiner struct {
	suite dleq.Suite
}

func NewKyberCombiner() *KyberCombiner {
	return &KyberCombiner{suite: blsSuite()}
}

type ciphertext struct {
	c1 kyber.Point
	c2 kyber.Point
}

func (c *KyberCombiner) Combine(session *Session, shares []*KeyShare) (*VoteResult, error) {
	if uint64(len(session.Partials)) < session.Threshold {
		return nil, ErrInsufficientShares
	}
	forCT, againstCT, err := c.parseTally(session.EncryptedTally)
	if err != nil {
		return nil, err
	}

	byJuror := make(map[common.Address]*KeyShare, len(shares))
	for _, s := range shares {
		byJuror[s.Juror] = s
	}

	base := c.suite.Point().Base()
	pointLen := c.suite.PointLen()
	forShares := make([]*kyber_share.PubShare, 0, len(session.Partials))
	againstShares := make([]*kyber_share.PubShare, 0, len(session.Partials))

	for _, partial := range session.Partials {
		keyShare, ok := byJuror[partial.Juror]
		if !ok {
			return nil, ErrUnknownJuror
		}
		if !keyShare.Verified {
			return nil, ErrShareNotVerified
		}
		pub := c.suite.Point()
		if err := pub.UnmarshalBinary(keyShare.PublicShare); err != nil {
			return nil, fmt.Errorf("juror %s public share: %w", partial.Juror.Hex(), err)
		}

		if len(partial.DecryptionShare) != 4+2*pointLen {
			return nil, ErrMalformedPartial
		}
		index := int(binary.LittleEndian.Uint32(partial.DecryptionShare[:4]))
		uFor := c.suite.Point()
		if err := uFor.UnmarshalBinary(partial.DecryptionShare[4 : 4+pointLen]); err != nil {
			return nil, ErrMalformedPartial
		}
		uAgainst := c.suite.Point()
		if err := uAgainst.UnmarshalBinary(partial.DecryptionShare[4+pointLen:]); err != nil {
			return nil, ErrMalformedPartial
		}

		proofFor, proofAgainst, err := c.parseProofs(partial.Proof)
		if err != nil {
			return nil, err
		}
		if err := proofFor.Verify(c.suite, base, forCT.c1, pub, uFor); err != nil {
			return nil, fmt.Errorf("%w: juror %s approvals", ErrInvalidDleqProof, partial.Juror.Hex())
		}
		if err := proofAgainst.Verify(c.suite, base, againstCT.c1, pub, uAgainst); err != nil {
			return nil, fmt.Errorf("%w: juror %s rejections", ErrInvalidDleqProof, partial.Juror.Hex())
		}

		forShares = append(forShares, &kyber_share.PubShare{I: index, V: uFor})
		againstShares = append(againstShares, &kyber_share.PubShare{I: index, V: uAgainst})
	}

	votesFor, err := c.recover(forCT, forShares, session)
	if err != nil {
		return nil, err
	}
	votesAgainst, err := c.recover(againstCT, againstShares, session)
	if err != nil {
		return nil, err
	}
	return &VoteResult{
		VotesFor:     votesFor,
		VotesAgainst: votesAgainst,
		TotalVotes:   votesFor + votesAgainst,
		Verified:     true,
	}, nil
}

func (c *KyberCombiner) recover(ct ciphertext, shares []*kyber_share.PubShare, session *Session) (uint64, error) {
	recovered, err := kyber_share.RecoverCommit(c.suite, shares, int(session.Threshold), int(session.TotalJurors))
	if err != nil {
		return 0, fmt.Errorf("threshold recovery failed: %w", err)
	}
	blinded := c.suite.Point().Sub(ct.c2, recovered)
	return c.decodeExponent(blinded, session.TotalJurors)
}

// decodeExponent finds m with m*G == target. The exponent is bounded by the
// juror count, so a linear scan suffices.
func (c *KyberCombiner) decodeExponent(target kyber.Point, max uint64) (uint64, error) {
	acc := c.suite.Point().Null()
	base := c.suite.Point().Base()
	for m := uint64(0); m <= max; m++ {
		if acc.Equal(target) {
			return m, nil
		}
		acc = c.suite.Point().Add(acc, base)
	}
	return 0, ErrTallyDecode
}

func (c *KyberCombiner) parseTally(raw []byte) (ciphertext, ciphertext, error) {
	pointLen := c.suite.PointLen()
	if len(raw) != 4*pointLen {
		return ciphertext{}, ciphertext{}, ErrMalformedTally
	}
	points := make([]kyber.Point, 4)
	for i := range points {
		points[i] = c.suite.Point()
		if err := points[i].UnmarshalBinary(raw[i*pointLen : (i+1)*pointLen]); err != nil {
			return ciphertext{}, ciphertext{}, ErrMalformedTally
		}
	}
	return ciphertext{c1: points[0], c2: points[1]}, ciphertext{c1: points[2], c2: points[3]}, nil
}

func (c *KyberCombiner) parseProofs(raw []byte) (*dleq.Proof, *dleq.Proof, error) {
	scalarLen := c.suite.ScalarLen()
	pointLen := c.suite.PointLen()
	proofLen := 2*scalarLen + 2*pointLen
	if len(raw) != 2*proofLen {
		return nil, nil, ErrMalformedPartial
	}
	first, err := c.parseProof(raw[:proofLen])
	if err != nil {
		return nil, nil, err
	}
	second, err := c.parseProof(raw[proofLen:])
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

func (c *KyberCombiner) parseProof(raw []byte) (*dleq.Proof, error) {
	scalarLen := c.suite.ScalarLen()
	pointLen := c.suite.PointLen()

	proof := &dleq.Proof{
		C:  c.suite.Scalar(),
		R:  c.suite.Scalar(),
		VG: c.suite.Point(),
		VH: c.suite.Point(),
	}
	offset := 0
	if err := proof.C.UnmarshalBinary(raw[offset : offset+scalarLen]); err != nil {
		return nil, ErrMalformedPartial
	}
	offset += scalarLen
	if err := proof.R.UnmarshalBinary(raw[offset : offset+scalarLen]); err != nil {
		return nil, ErrMalformedPartial
	}
	offset += scalarLen
	if err := proof.VG.UnmarshalBinary(raw[offset : offset+pointLen]); err != nil {
		return nil, ErrMalformedPartial
	}
	offset += pointLen
	if err := proof.VH.UnmarshalBinary(raw[offset : offset+pointLen]); err != nil {
		return nil, ErrMalformedPartial
	}
	return proof, nil
}
