package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	abci_types "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/mossline/treasury-app/tx"
	"github.com/mossline/treasury-app/types"
)

// TipDigest derives the reason digest and the tip key from the raw
// reason and the tipped account.
func TipDigest(reason, who []byte) (reasonHash, tipHash common.Hash) {
	reasonHash = crypto.Keccak256Hash(reason)
	tipHash = crypto.Keccak256Hash(reasonHash[:], who)
	return
}

func (s *State) getTip(hash common.Hash) (t *types.OpenTip, err error) {
	if staged, ok := s.modTips[hash]; ok {
		if staged == nil {
			return nil, ErrUnknownTip
		}
		return staged, nil
	}
	key := fmt.Sprintf(KeyTipBody, hash[:])
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrUnknownTip
		}
		return nil, err
	}
	if val == nil {
		return nil, ErrUnknownTip
	}
	t = new(types.OpenTip)
	err = json.Unmarshal(val, t)
	return
}

func (s *State) hasReason(hash common.Hash) (bool, error) {
	if staged, ok := s.modReasons[hash]; ok {
		return staged != nil, nil
	}
	key := fmt.Sprintf(KeyReasonBody, hash[:])
	val, err := s.db.Get([]byte(key))
	if err != nil && err != leveldb.ErrNotFound {
		return false, err
	}
	return val != nil, nil
}

func (s *State) retainActiveTips(tips []types.TipContribution) []types.TipContribution {
	kept := tips[:0]
	for _, t := range tips {
		if s.authority.IsTipper(t.Tipper) {
			kept = append(kept, t)
		}
	}
	return kept
}

// insertTipAndCheckClosing records one tipper's declaration, prunes
// contributions from de-authorized tippers and arms the countdown once
// a majority of the electorate has declared.
func (s *State) insertTipAndCheckClosing(t *types.OpenTip, tipper []byte, amount uint64) bool {
	pos := sort.Search(len(t.Tips), func(i int) bool {
		return bytes.Compare(t.Tips[i].Tipper, tipper) >= 0
	})
	if pos < len(t.Tips) && bytes.Equal(t.Tips[pos].Tipper, tipper) {
		t.Tips[pos].Amount = amount
	} else {
		t.Tips = append(t.Tips, types.TipContribution{})
		copy(t.Tips[pos+1:], t.Tips[pos:])
		t.Tips[pos] = types.TipContribution{Tipper: append([]byte{}, tipper...), Amount: amount}
	}
	t.Tips = s.retainActiveTips(t.Tips)
	threshold := (s.authority.TipperCount() + 1) / 2
	if len(t.Tips) >= threshold && t.ClosesAt == nil {
		closes := s.header.Height + s.params.TipCountdown
		t.ClosesAt = &closes
		return true
	}
	return false
}

// ReportAwesome files a tip on someone else's behalf, holding a
// deposit from the finder that scales with the reason length.
func (s *State) ReportAwesome(t *tx.ReportAwesomeTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply report awesome", "caller", caller, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	if len(t.Who) != common.AddressLength {
		return nil, ErrInvalidValue
	}
	if uint64(len(t.Reason)) > s.params.MaximumReasonLength {
		return nil, ErrReasonTooBig
	}
	reasonHash, tipHash := TipDigest(t.Reason, t.Who)
	known, err := s.hasReason(reasonHash)
	if err != nil {
		return nil, err
	}
	if known {
		return nil, ErrAlreadyKnown
	}
	if _, err := s.getTip(tipHash); err == nil {
		return nil, ErrAlreadyKnown
	}
	deposit := s.TipReportDeposit(len(t.Reason))
	if a.Free < deposit {
		return nil, ErrInsufficientBalance
	}
	if checkOnly {
		return nil, nil
	}
	if err = s.reserve(a, deposit); err != nil {
		return nil, err
	}
	s.modReasons[reasonHash] = append([]byte{}, t.Reason...)
	s.modTips[tipHash] = &types.OpenTip{
		Reason:     reasonHash[:],
		Who:        append([]byte{}, t.Who...),
		Finder:     a.AddrBytes(),
		Deposit:    deposit,
		Tips:       []types.TipContribution{},
		FindersFee: true,
	}
	s.bumpNonce(a)
	events = append(events, types.EncodeEventNewTip(&types.EventNewTip{
		Hash:   tipHash.Hex(),
		Reason: string(t.Reason),
		Who:    types.Addr(t.Who),
		Finder: types.Addr(a.AddrBytes()),
	}))
	return
}

// RetractTip lets the finder withdraw an unclosed tip and recover the
// deposit.
func (s *State) RetractTip(t *tx.RetractTipTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply retract tip", "caller", caller, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	hash := common.BytesToHash(t.Hash)
	tip, err := s.getTip(hash)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(tip.Finder, a.AddrBytes()) {
		return nil, ErrNotFinder
	}
	if checkOnly {
		return nil, nil
	}
	s.modReasons[common.BytesToHash(tip.Reason)] = nil
	s.modTips[hash] = nil
	if tip.Deposit > 0 {
		s.unreserve(a, tip.Deposit)
	}
	s.bumpNonce(a)
	events = append(events, types.EncodeEventTipRetracted(&types.EventTipRetracted{Hash: hash.Hex()}))
	return
}

// TipNew opens a tip directly from an electorate member, seeding it
// with the member's own declaration. No deposit is held.
func (s *State) TipNew(t *tx.TipNewTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply tip new", "caller", caller, "amount", t.Amount, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	if !s.authority.IsTipper(a.AddrBytes()) {
		return nil, ErrNotTipper
	}
	if len(t.Who) != common.AddressLength {
		return nil, ErrInvalidValue
	}
	if uint64(len(t.Reason)) > s.params.MaximumReasonLength {
		return nil, ErrReasonTooBig
	}
	reasonHash, tipHash := TipDigest(t.Reason, t.Who)
	known, err := s.hasReason(reasonHash)
	if err != nil {
		return nil, err
	}
	if known {
		return nil, ErrAlreadyKnown
	}
	if checkOnly {
		return nil, nil
	}
	s.modReasons[reasonHash] = append([]byte{}, t.Reason...)
	s.modTips[tipHash] = &types.OpenTip{
		Reason: reasonHash[:],
		Who:    append([]byte{}, t.Who...),
		Finder: a.AddrBytes(),
		Tips: []types.TipContribution{
			{Tipper: a.AddrBytes(), Amount: t.Amount},
		},
		FindersFee: false,
	}
	s.bumpNonce(a)
	events = append(events, types.EncodeEventNewTip(&types.EventNewTip{
		Hash:   tipHash.Hex(),
		Reason: string(t.Reason),
		Who:    types.Addr(t.Who),
		Finder: types.Addr(a.AddrBytes()),
	}))
	return
}

// Tip records or updates the caller's declaration on an open tip.
func (s *State) Tip(t *tx.TipTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply tip", "caller", caller, "amount", t.Amount, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	if !s.authority.IsTipper(a.AddrBytes()) {
		return nil, ErrNotTipper
	}
	hash := common.BytesToHash(t.Hash)
	tip, err := s.getTip(hash)
	if err != nil {
		return nil, err
	}
	if checkOnly {
		return nil, nil
	}
	staged := *tip
	staged.Tips = append([]types.TipContribution{}, tip.Tips...)
	closing := s.insertTipAndCheckClosing(&staged, a.AddrBytes(), t.Amount)
	s.modTips[hash] = &staged
	s.bumpNonce(a)
	if closing {
		events = append(events, types.EncodeEventTipClosing(&types.EventTipClosing{
			Hash:     hash.Hex(),
			ClosesAt: *staged.ClosesAt,
		}))
	}
	return
}

// CloseTip pays out a tip whose countdown has elapsed. The payout is
// the lower median of surviving declarations, clamped to the pot.
func (s *State) CloseTip(t *tx.CloseTipTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply close tip", "caller", caller, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	hash := common.BytesToHash(t.Hash)
	tip, err := s.getTip(hash)
	if err != nil {
		return nil, err
	}
	if tip.ClosesAt == nil {
		return nil, ErrStillOpen
	}
	if s.header.Height < *tip.ClosesAt {
		return nil, ErrPremature
	}
	if checkOnly {
		return nil, nil
	}
	s.modReasons[common.BytesToHash(tip.Reason)] = nil
	s.modTips[hash] = nil
	events, err = s.payoutTip(hash, tip)
	if err != nil {
		return nil, err
	}
	s.bumpNonce(a)
	return
}

func (s *State) payoutTip(hash common.Hash, tip *types.OpenTip) (events []abci_types.Event, err error) {
	tips := append([]types.TipContribution{}, tip.Tips...)
	tips = s.retainActiveTips(tips)
	amounts := make([]uint64, len(tips))
	for i, c := range tips {
		amounts[i] = c.Amount
	}
	sort.Slice(amounts, func(i, j int) bool { return amounts[i] < amounts[j] })
	var payout uint64
	if len(amounts) > 0 {
		payout = amounts[len(amounts)/2]
	}
	pot, err := s.Pot()
	if err != nil {
		return nil, err
	}
	if payout > pot {
		payout = pot
	}
	if tip.Deposit > 0 {
		finder, err := s.FindAccount(tip.Finder)
		if err != nil {
			return nil, err
		}
		if finder != nil {
			s.unreserve(finder, tip.Deposit)
		}
	}
	treasury := TreasuryAddress()
	if tip.FindersFee && !bytes.Equal(tip.Finder, tip.Who) {
		fee := percentOf(payout, s.params.TipFindersFee)
		payout -= fee
		if err := s.transfer(treasury, tip.Finder, fee); err != nil {
			s.logger.Error("tip finders fee transfer failed", "hash", hash.Hex(), "fee", fee, "err", err)
		}
	}
	if err := s.transfer(treasury, tip.Who, payout); err != nil {
		s.logger.Error("tip payout transfer failed", "hash", hash.Hex(), "payout", payout, "err", err)
	}
	events = append(events, types.EncodeEventTipClosed(&types.EventTipClosed{
		Hash:   hash.Hex(),
		Who:    types.Addr(tip.Who),
		Payout: payout,
	}))
	return
}
