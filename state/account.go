package state

import (
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
)

// Account is a balance-carrying entry in the ledger. EOAs carry an
// ed25519 PubKey; module and address-only accounts carry Addr instead
// and can never pass signature verification.
type Account struct {
	Index    uint64 `json:"index"`
	PubKey   []byte `json:"pubKey"`
	Addr     []byte `json:"addr"`
	Free     uint64 `json:"free"`
	Reserved uint64 `json:"reserved"`
	Nonce    uint64 `json:"nonce"`
}

func (a *Account) Clone() *Account {
	n := &Account{
		Index:    a.Index,
		Free:     a.Free,
		Reserved: a.Reserved,
		Nonce:    a.Nonce,
	}
	if a.PubKey != nil {
		n.PubKey = append([]byte{}, a.PubKey...)
	}
	if a.Addr != nil {
		n.Addr = append([]byte{}, a.Addr...)
	}
	return n
}

func (a *Account) SetPubKey(pkey []byte) {
	if a.PubKey == nil {
		a.PubKey = make([]byte, len(pkey))
	}
	copy(a.PubKey, pkey)
}

func (a *Account) AddrBytes() []byte {
	if len(a.PubKey) == 0 {
		return a.Addr
	}
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.Address()[:]
}

func (a *Account) Address() string {
	return cmtcrypto.Address(a.AddrBytes()).String()
}

func (a *Account) Verify(msg []byte, sigs [][]byte) (succ bool) {
	if len(sigs) != 1 || len(a.PubKey) == 0 {
		return false
	}
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.VerifySignature(msg, sigs[0])
}
