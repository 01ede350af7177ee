package store

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Keyspace layout. Case-scoped records embed the big-endian case ID so that
// prefix scans walk one case at a time in order.
//
//	reg                                  validator registry (singleton)
//	case/<id8>                           case record
//	ballot/<id8>/<addr20>                vote commitment per juror
//	null/<id8>/<nullifier32>             spent nullifier marker
//	mpc/<id8>                            MPC session (includes partials)
//	mpcshare/<id8>/<addr20>              juror key share
//	evid/<id8>                           evidence commitment
//	evidshare/<id8>/<addr20>             juror evidence share
//	seq/case                             case ID sequence counter

func RegistryKey() []byte {
	return []byte("reg")
}

func CaseSeqKey() []byte {
	return []byte("seq/case")
}

func CaseKey(id uint64) []byte {
	return caseScoped("case/", id)
}

func CasePrefix() []byte {
	return []byte("case/")
}

func BallotKey(id uint64, juror common.Address) []byte {
	return append(caseScoped("ballot/", id), juror.Bytes()...)
}

func BallotPrefix(id uint64) []byte {
	return caseScoped("ballot/", id)
}

func NullifierKey(id uint64, nullifier common.Hash) []byte {
	return append(caseScoped("null/", id), nullifier.Bytes()...)
}

func SessionKey(id uint64) []byte {
	return caseScoped("mpc/", id)
}

func KeyShareKey(id uint64, juror common.Address) []byte {
	return append(caseScoped("mpcshare/", id), juror.Bytes()...)
}

func KeySharePrefix(id uint64) []byte {
	return caseScoped("mpcshare/", id)
}

func EvidenceKey(id uint64) []byte {
	return caseScoped("evid/", id)
}

func EvidenceShareKey(id uint64, juror common.Address) []byte {
	return append(caseScoped("evidshare/", id), juror.Bytes()...)
}

func caseScoped(prefix string, id uint64) []byte {
	out := make([]byte, 0, len(prefix)+8)
	out = append(out, prefix...)
	return binary.BigEndian.AppendUint64(out, id)
}
