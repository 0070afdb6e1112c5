package state

import (
	abci_types "github.com/cometbft/cometbft/abci/types"

	"github.com/mossline/treasury-app/types"
)

// SettleFunds runs one settlement cycle: pay out the approved spend
// queue, then fund the approved bounty queue, both in approval order.
// Entries that do not fit the remaining budget stay queued, and any
// miss suppresses the surplus burn for this cycle.
func (s *State) SettleFunds() (events []abci_types.Event, err error) {
	budget, err := s.Pot()
	if err != nil {
		return nil, err
	}
	s.logger.Info("settle funds", "height", s.header.Height, "budget", budget)
	events = append(events, types.EncodeEventSpending(&types.EventSpending{Budget: budget}))
	treasury := TreasuryAddress()
	missedAny := false

	if err = s.loadApprovals(); err != nil {
		return nil, err
	}
	kept := s.approvals[:0]
	for _, idx := range s.approvals {
		p, perr := s.getProposal(idx)
		if perr != nil {
			// stale queue entry, drop it
			s.approvalsDirty = true
			continue
		}
		if p.Value > budget {
			missedAny = true
			kept = append(kept, idx)
			continue
		}
		budget -= p.Value
		s.setProposal(idx, nil)
		if proposer, ferr := s.FindAccount(p.Proposer); ferr == nil && proposer != nil {
			s.unreserve(proposer, p.Bond)
		}
		if terr := s.transfer(treasury, p.Beneficiary, p.Value); terr != nil {
			s.logger.Error("award transfer failed", "proposal", idx, "value", p.Value, "err", terr)
		}
		s.approvalsDirty = true
		events = append(events, types.EncodeEventAwarded(&types.EventAwarded{
			Proposal:    idx,
			Value:       p.Value,
			Beneficiary: types.Addr(p.Beneficiary),
		}))
	}
	s.approvals = kept

	if err = s.loadBountyApprovals(); err != nil {
		return nil, err
	}
	keptBounties := s.bountyApprovals[:0]
	for _, idx := range s.bountyApprovals {
		b, berr := s.getBounty(idx)
		if berr != nil {
			s.bountyApprovalsDirty = true
			continue
		}
		if b.Value > budget {
			missedAny = true
			keptBounties = append(keptBounties, idx)
			continue
		}
		budget -= b.Value
		nb := *b
		nb.Status = types.BountyStatusActive
		nb.Expires = s.header.Height + s.params.BountyDuration
		s.setBounty(idx, &nb)
		if proposer, ferr := s.FindAccount(b.Proposer); ferr == nil && proposer != nil {
			s.unreserve(proposer, b.Bond)
		}
		if terr := s.transfer(treasury, BountyAddress(idx), b.Value); terr != nil {
			s.logger.Error("bounty funding transfer failed", "bounty", idx, "value", b.Value, "err", terr)
		}
		s.bountyApprovalsDirty = true
		events = append(events, types.EncodeEventBountyBecameActive(&types.EventBountyBecameActive{
			Bounty:  idx,
			Expires: nb.Expires,
		}))
	}
	s.bountyApprovals = keptBounties

	if !missedAny {
		burn := permillOf(budget, s.params.BurnFraction)
		if burn > budget {
			burn = budget
		}
		budget -= burn
		if burn > 0 {
			if err = s.burnFrom(treasury, burn); err != nil {
				return nil, err
			}
		}
		events = append(events, types.EncodeEventBurnt(&types.EventBurnt{Amount: burn}))
	}

	events = append(events, types.EncodeEventRollover(&types.EventRollover{Remaining: budget}))
	return
}
