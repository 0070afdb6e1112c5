package state

import (
	"bytes"
	"encoding/json"
	"fmt"

	abci_types "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/mossline/treasury-app/tx"
	"github.com/mossline/treasury-app/types"
)

func (s *State) getBounty(idx uint64) (b *types.Bounty, err error) {
	if staged, ok := s.modBounties[idx]; ok {
		if staged == nil {
			return nil, ErrInvalidIndex
		}
		return staged, nil
	}
	if idx >= s.bountyCount {
		return nil, ErrInvalidIndex
	}
	key := fmt.Sprintf(KeyBountyBody, idx)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrInvalidIndex
		}
		return nil, err
	}
	if val == nil {
		return nil, ErrInvalidIndex
	}
	b = new(types.Bounty)
	err = json.Unmarshal(val, b)
	return
}

func (s *State) setBounty(idx uint64, b *types.Bounty) {
	s.modBounties[idx] = b
}

func (s *State) loadBountyApprovals() error {
	if s.bountyApprovalsLoaded {
		return nil
	}
	val, err := s.db.Get([]byte(KeyBountyApprovals))
	if err != nil && err != leveldb.ErrNotFound {
		return err
	}
	if val != nil {
		if err := json.Unmarshal(val, &s.bountyApprovals); err != nil {
			return err
		}
	}
	s.bountyApprovalsLoaded = true
	return nil
}

func (s *State) BountyCount() uint64 {
	return s.bountyCount
}

// BountyApprovals returns the pending bounty funding queue.
func (s *State) BountyApprovals() ([]uint64, error) {
	if err := s.loadBountyApprovals(); err != nil {
		return nil, err
	}
	return append([]uint64{}, s.bountyApprovals...), nil
}

// BountyValueMinimum is the stored floor for new bounty values,
// falling back to the configured seed until first updated.
func (s *State) BountyValueMinimum() uint64 {
	if s.bountyValueMinSet {
		return s.bountyValueMin
	}
	return s.params.BountyValueMinimum
}

// checkBountyDepth walks parent links upward and reports whether the
// chain stays within depth.
func (s *State) checkBountyDepth(parent *uint64, depth uint8) bool {
	for parent != nil {
		if depth == 0 {
			return false
		}
		b, err := s.getBounty(*parent)
		if err != nil {
			return true
		}
		parent = b.Parent
		depth -= 1
	}
	return true
}

func (s *State) createBounty(a *Account, curator, desc []byte, fee, value uint64, parent *uint64, checkOnly bool) (events []abci_types.Event, err error) {
	if uint64(len(desc)) > s.params.MaximumReasonLength {
		return nil, ErrReasonTooBig
	}
	if value < s.BountyValueMinimum() {
		return nil, ErrInvalidValue
	}
	if fee >= value {
		return nil, ErrInvalidFee
	}
	if len(curator) != common.AddressLength {
		return nil, ErrInvalidValue
	}

	idx := s.bountyCount
	var bond uint64
	var parentCopy *types.Bounty

	if parent != nil {
		parentB, err := s.getBounty(*parent)
		if err != nil {
			return nil, err
		}
		if parentB.Status != types.BountyStatusActive {
			return nil, ErrUnexpectedStatus
		}
		if !bytes.Equal(a.AddrBytes(), parentB.Curator) {
			return nil, ErrRequireCurator
		}
		if fee >= parentB.Fee {
			return nil, ErrInvalidFee
		}
		if value >= parentB.Value {
			return nil, ErrInvalidValue
		}
		if !s.checkBountyDepth(parent, s.params.MaxSubBountyDepth) {
			return nil, ErrExceedDepthLimit
		}
		parentFree, err := s.freeBalance(BountyAddress(*parent))
		if err != nil {
			return nil, err
		}
		if parentFree < value {
			return nil, ErrInsufficientBalance
		}
		pc := *parentB
		parentCopy = &pc
	} else {
		bond = s.BountyBond(len(desc))
		if a.Free < bond {
			return nil, ErrInsufficientBalance
		}
	}

	if checkOnly {
		return nil, nil
	}

	b := &types.Bounty{
		Index:    idx,
		Proposer: a.AddrBytes(),
		Curator:  append([]byte{}, curator...),
		Value:    value,
		Fee:      fee,
		Bond:     bond,
		Status:   types.BountyStatusProposed,
	}
	if parent != nil {
		// fund the sub bounty from the parent bounty sub-account
		if err = s.transfer(BountyAddress(*parent), BountyAddress(idx), value); err != nil {
			return nil, err
		}
		parentCopy.Fee -= fee
		parentCopy.Value -= value
		s.setBounty(*parent, parentCopy)
		p := *parent
		b.Parent = &p
		b.Status = types.BountyStatusActive
		b.Expires = s.header.Height + s.params.BountyDuration
	} else {
		if err = s.reserve(a, bond); err != nil {
			return nil, err
		}
	}

	s.bountyCount += 1
	s.bountyCountDirty = true
	s.setBounty(idx, b)
	s.modDescs[idx] = append([]byte{}, desc...)
	s.bumpNonce(a)

	var parentIdx uint64
	if parent != nil {
		parentIdx = *parent
	}
	events = append(events, types.EncodeEventBountyProposed(&types.EventBountyProposed{
		Bounty:   idx,
		Proposer: types.Addr(a.AddrBytes()),
		Curator:  types.Addr(curator),
		Value:    value,
		Fee:      fee,
		Parent:   parentIdx,
		Sub:      parent != nil,
	}))
	if parent != nil {
		events = append(events, types.EncodeEventBountyBecameActive(&types.EventBountyBecameActive{
			Bounty:  idx,
			Expires: b.Expires,
		}))
	}
	return
}

// ProposeBounty reserves the proposer's bond and files a curated
// bounty for board decision.
func (s *State) ProposeBounty(t *tx.ProposeBountyTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply propose bounty", "caller", caller, "value", t.Value, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	return s.createBounty(a, t.Curator, t.Description, t.Fee, t.Value, nil, checkOnly)
}

// ProposeSubBounty carves a child bounty out of an active parent. Only
// the parent's curator may do this; the child is funded out of the
// parent's sub-account and becomes active immediately, bond-free.
func (s *State) ProposeSubBounty(t *tx.ProposeSubBountyTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply propose sub bounty", "caller", caller, "parent", t.Parent, "value", t.Value, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	parent := t.Parent
	return s.createBounty(a, t.Curator, t.Description, t.Fee, t.Value, &parent, checkOnly)
}

// RejectBounty slashes the proposer's bond into the treasury and drops
// a still-proposed bounty.
func (s *State) RejectBounty(t *tx.RejectBountyTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply reject bounty", "caller", caller, "bounty", t.Bounty, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	if !s.authority.IsRejector(a.AddrBytes()) {
		return nil, ErrNotRejector
	}
	b, err := s.getBounty(t.Bounty)
	if err != nil {
		return nil, err
	}
	if b.Status != types.BountyStatusProposed {
		return nil, ErrUnexpectedStatus
	}
	if checkOnly {
		return nil, nil
	}
	proposer, err := s.FindAccount(b.Proposer)
	if err != nil {
		return nil, err
	}
	var slashed uint64
	if proposer != nil {
		slashed, err = s.slashReserved(proposer, b.Bond)
		if err != nil {
			return nil, err
		}
	}
	s.setBounty(t.Bounty, nil)
	s.modDescs[t.Bounty] = nil
	s.bumpNonce(a)
	events = append(events,
		types.EncodeEventBountyRejected(&types.EventBountyRejected{Bounty: t.Bounty, Slashed: slashed}),
		types.EncodeEventDeposit(&types.EventDeposit{Amount: slashed}),
	)
	return
}

// ApproveBounty queues the bounty for funding at the next settlement.
func (s *State) ApproveBounty(t *tx.ApproveBountyTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply approve bounty", "caller", caller, "bounty", t.Bounty, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	if !s.authority.IsApprover(a.AddrBytes()) {
		return nil, ErrNotApprover
	}
	b, err := s.getBounty(t.Bounty)
	if err != nil {
		return nil, err
	}
	if b.Status != types.BountyStatusProposed {
		return nil, ErrUnexpectedStatus
	}
	if checkOnly {
		return nil, nil
	}
	nb := *b
	nb.Status = types.BountyStatusApproved
	s.setBounty(t.Bounty, &nb)
	if err = s.loadBountyApprovals(); err != nil {
		return nil, err
	}
	s.bountyApprovals = append(s.bountyApprovals, t.Bounty)
	s.bountyApprovalsDirty = true
	s.bumpNonce(a)
	return
}

// AwardBounty lets the curator name a beneficiary; the payout unlocks
// after the configured delay.
func (s *State) AwardBounty(t *tx.AwardBountyTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply award bounty", "caller", caller, "bounty", t.Bounty, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	if len(t.Beneficiary) != common.AddressLength {
		return nil, ErrInvalidValue
	}
	b, err := s.getBounty(t.Bounty)
	if err != nil {
		return nil, err
	}
	if b.Status != types.BountyStatusActive {
		return nil, ErrUnexpectedStatus
	}
	if !bytes.Equal(b.Curator, a.AddrBytes()) {
		return nil, ErrRequireCurator
	}
	if checkOnly {
		return nil, nil
	}
	nb := *b
	nb.Status = types.BountyStatusPendingPayout
	nb.Beneficiary = append([]byte{}, t.Beneficiary...)
	nb.UnlockAt = s.header.Height + s.params.BountyPayoutDelay
	nb.Expires = 0
	s.setBounty(t.Bounty, &nb)
	s.bumpNonce(a)
	events = append(events, types.EncodeEventBountyAwarded(&types.EventBountyAwarded{
		Bounty:      t.Bounty,
		Beneficiary: types.Addr(t.Beneficiary),
		UnlockAt:    nb.UnlockAt,
	}))
	return
}

// ClaimBounty pays out an unlocked bounty: the fee to the curator, the
// rest of the sub-account to the beneficiary. Anyone may trigger it.
func (s *State) ClaimBounty(t *tx.ClaimBountyTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply claim bounty", "caller", caller, "bounty", t.Bounty, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	b, err := s.getBounty(t.Bounty)
	if err != nil {
		return nil, err
	}
	if b.Status != types.BountyStatusPendingPayout {
		return nil, ErrUnexpectedStatus
	}
	if s.header.Height < b.UnlockAt {
		return nil, ErrPremature
	}
	if checkOnly {
		return nil, nil
	}
	acc := BountyAddress(t.Bounty)
	balance, err := s.freeBalance(acc)
	if err != nil {
		return nil, err
	}
	fee := b.Fee
	if fee > balance {
		fee = balance
	}
	payout := balance - fee
	if err := s.transfer(acc, b.Curator, fee); err != nil {
		s.logger.Error("bounty fee transfer failed", "bounty", t.Bounty, "fee", fee, "err", err)
	}
	if err := s.transfer(acc, b.Beneficiary, payout); err != nil {
		s.logger.Error("bounty payout transfer failed", "bounty", t.Bounty, "payout", payout, "err", err)
	}
	s.setBounty(t.Bounty, nil)
	s.modDescs[t.Bounty] = nil
	s.bumpNonce(a)
	events = append(events, types.EncodeEventBountyClaimed(&types.EventBountyClaimed{
		Bounty:      t.Bounty,
		Payout:      payout,
		Beneficiary: types.Addr(b.Beneficiary),
	}))
	return
}

// CancelBounty folds an active bounty's funds back into the treasury.
// Before expiry only the curator may cancel; once expired anyone may.
func (s *State) CancelBounty(t *tx.CancelBountyTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply cancel bounty", "caller", caller, "bounty", t.Bounty, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	b, err := s.getBounty(t.Bounty)
	if err != nil {
		return nil, err
	}
	if b.Status != types.BountyStatusActive {
		return nil, ErrUnexpectedStatus
	}
	if b.Expires > s.header.Height && !bytes.Equal(b.Curator, a.AddrBytes()) {
		return nil, ErrRequireCurator
	}
	if checkOnly {
		return nil, nil
	}
	acc := BountyAddress(t.Bounty)
	balance, err := s.freeBalance(acc)
	if err != nil {
		return nil, err
	}
	if err := s.transfer(acc, TreasuryAddress(), balance); err != nil {
		s.logger.Error("bounty refund transfer failed", "bounty", t.Bounty, "balance", balance, "err", err)
	}
	s.setBounty(t.Bounty, nil)
	s.modDescs[t.Bounty] = nil
	s.bumpNonce(a)
	events = append(events, types.EncodeEventBountyCanceled(&types.EventBountyCanceled{
		Bounty:   t.Bounty,
		Refunded: balance,
	}))
	return
}

// ExtendBountyExpiry pushes an active bounty's expiry out to at least
// one full duration from now.
func (s *State) ExtendBountyExpiry(t *tx.ExtendBountyExpiryTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply extend bounty expiry", "caller", caller, "bounty", t.Bounty, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	b, err := s.getBounty(t.Bounty)
	if err != nil {
		return nil, err
	}
	if b.Status != types.BountyStatusActive {
		return nil, ErrUnexpectedStatus
	}
	if !bytes.Equal(b.Curator, a.AddrBytes()) {
		return nil, ErrRequireCurator
	}
	if checkOnly {
		return nil, nil
	}
	nb := *b
	if e := s.header.Height + s.params.BountyDuration; e > nb.Expires {
		nb.Expires = e
	}
	s.setBounty(t.Bounty, &nb)
	s.bumpNonce(a)
	events = append(events, types.EncodeEventBountyExtended(&types.EventBountyExtended{
		Bounty:  t.Bounty,
		Expires: nb.Expires,
	}))
	return
}

// UpdateBountyValueMinimum overrides the stored floor for new bounty
// values. Approver-gated.
func (s *State) UpdateBountyValueMinimum(t *tx.UpdateBountyValueMinimumTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply update bounty value minimum", "caller", caller, "value", t.Value, "height", s.header.Height)
	a, err := s.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxCallerNoexists
	}
	if !s.authority.IsApprover(a.AddrBytes()) {
		return nil, ErrNotApprover
	}
	if checkOnly {
		return nil, nil
	}
	s.bountyValueMin = t.Value
	s.bountyValueMinSet = true
	s.bountyValueMinDirty = true
	s.bumpNonce(a)
	events = append(events, types.EncodeEventBountyValueMinimum(&types.EventBountyValueMinimum{Value: t.Value}))
	return
}

// SetBountyValueMinimum seeds the stored floor at genesis.
func (s *State) SetBountyValueMinimum(v uint64) {
	s.bountyValueMin = v
	s.bountyValueMinSet = true
	s.bountyValueMinDirty = true
}
