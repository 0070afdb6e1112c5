package state

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Module account addresses are derived the same way contract-less
// system accounts usually are: a keccak preimage truncated to 20 bytes.
// No key pair exists for them, so they can only move funds through
// ledger operations.
func moduleAddress(tag string) []byte {
	return crypto.Keccak256([]byte(tag))[12:]
}

func TreasuryAddress() []byte {
	return moduleAddress("treasury/pot")
}

func BountyAddress(idx uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, idx)
	return crypto.Keccak256(append([]byte("treasury/bounty"), buf...))[12:]
}

// getOrCreateAccount resolves addr, creating an address-only account
// when none exists so transfers to fresh beneficiaries succeed.
func (s *State) getOrCreateAccount(addr []byte) (*Account, error) {
	a, err := s.FindAccount(addr)
	if err != nil {
		return nil, err
	}
	if a != nil {
		return a, nil
	}
	a = &Account{Addr: append([]byte{}, addr...)}
	if err = s.AddAccount(a); err != nil {
		return nil, err
	}
	return s.acnts[a.Index], nil
}

func (s *State) freeBalance(addr []byte) (uint64, error) {
	a, err := s.FindAccount(addr)
	if err != nil {
		return 0, err
	}
	if a == nil {
		return 0, nil
	}
	return a.Free, nil
}

// Pot is the spendable treasury balance: free balance less the
// retention floor that keeps the pot account alive.
func (s *State) Pot() (uint64, error) {
	free, err := s.freeBalance(TreasuryAddress())
	if err != nil {
		return 0, err
	}
	if free <= s.params.MinimumRetention {
		return 0, nil
	}
	return free - s.params.MinimumRetention, nil
}

func (s *State) transfer(from, to []byte, amount uint64) error {
	src, err := s.FindAccount(from)
	if err != nil {
		return err
	}
	if src == nil || src.Free < amount {
		return ErrInsufficientBalance
	}
	dst, err := s.getOrCreateAccount(to)
	if err != nil {
		return err
	}
	src.Free -= amount
	dst.Free += amount
	s.touchAccount(src)
	s.touchAccount(dst)
	return nil
}

func (s *State) mint(addr []byte, amount uint64) error {
	a, err := s.getOrCreateAccount(addr)
	if err != nil {
		return err
	}
	a.Free += amount
	s.touchAccount(a)
	return nil
}

// Mint credits freshly issued funds to addr.
func (s *State) Mint(addr []byte, amount uint64) error {
	return s.mint(addr, amount)
}

func (s *State) burnFrom(addr []byte, amount uint64) error {
	a, err := s.FindAccount(addr)
	if err != nil {
		return err
	}
	if a == nil || a.Free < amount {
		return fmt.Errorf("burn %v exceeds balance", amount)
	}
	a.Free -= amount
	s.touchAccount(a)
	return nil
}

func (s *State) reserve(a *Account, amount uint64) error {
	if a.Free < amount {
		return ErrInsufficientBalance
	}
	a.Free -= amount
	a.Reserved += amount
	s.touchAccount(a)
	return nil
}

// unreserve releases up to amount back to free balance and reports
// what was actually moved.
func (s *State) unreserve(a *Account, amount uint64) uint64 {
	if amount > a.Reserved {
		amount = a.Reserved
	}
	a.Reserved -= amount
	a.Free += amount
	s.touchAccount(a)
	return amount
}

// slashReserved confiscates up to amount of the reserved balance and
// funds the treasury with it.
func (s *State) slashReserved(a *Account, amount uint64) (uint64, error) {
	if amount > a.Reserved {
		amount = a.Reserved
	}
	a.Reserved -= amount
	s.touchAccount(a)
	if err := s.mint(TreasuryAddress(), amount); err != nil {
		return 0, err
	}
	return amount, nil
}
