package state

import (
	"encoding/json"
	"fmt"

	abci_types "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/mossline/treasury-app/tx"
	"github.com/mossline/treasury-app/types"
)

func (s *State) getProposal(idx uint64) (p *types.Proposal, err error) {
	if staged, ok := s.modProposals[idx]; ok {
		if staged == nil {
			return nil, ErrInvalidIndex
		}
		return staged, nil
	}
	if idx >= s.proposalCount {
		return nil, ErrInvalidIndex
	}
	key := fmt.Sprintf(KeyProposalBody, idx)
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
	p = new(types.Proposal)
	err = json.Unmarshal(val, p)
	return
}

func (s *State) setProposal(idx uint64, p *types.Proposal) {
	s.modProposals[idx] = p
}

func (s *State) loadApprovals() error {
	if s.approvalsLoaded {
		return nil
	}
	val, err := s.db.Get([]byte(KeyApprovals))
	if err != nil && err != leveldb.ErrNotFound {
		return err
	}
	if val != nil {
		if err := json.Unmarshal(val, &s.approvals); err != nil {
			return err
		}
	}
	s.approvalsLoaded = true
	return nil
}

func (s *State) ProposalCount() uint64 {
	return s.proposalCount
}

// Approvals returns the pending spend queue in approval order.
func (s *State) Approvals() ([]uint64, error) {
	if err := s.loadApprovals(); err != nil {
		return nil, err
	}
	return append([]uint64{}, s.approvals...), nil
}

// ProposeSpend reserves the proposer's bond and files a new spend
// proposal for board decision.
func (s *State) ProposeSpend(t *tx.ProposeSpendTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply propose spend", "caller", caller, "value", t.Value, "height", s.header.Height)
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
	bond := s.ProposalBond(t.Value)
	if a.Free < bond {
		return nil, ErrInsufficientBalance
	}
	if checkOnly {
		return nil, nil
	}
	if err = s.reserve(a, bond); err != nil {
		return nil, err
	}
	idx := s.proposalCount
	s.proposalCount += 1
	s.proposalCountDirty = true
	s.setProposal(idx, &types.Proposal{
		Index:       idx,
		Proposer:    a.AddrBytes(),
		Value:       t.Value,
		Beneficiary: append([]byte{}, t.Beneficiary...),
		Bond:        bond,
	})
	s.bumpNonce(a)
	events = append(events, types.EncodeEventProposed(&types.EventProposed{
		Proposal:    idx,
		Proposer:    types.Addr(a.AddrBytes()),
		Value:       t.Value,
		Beneficiary: types.Addr(t.Beneficiary),
		Bond:        bond,
	}))
	return
}

// RejectProposal slashes the proposer's bond into the treasury and
// drops the proposal. Queued approvals are final and cannot be
// rejected afterwards.
func (s *State) RejectProposal(t *tx.RejectProposalTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply reject proposal", "caller", caller, "proposal", t.Proposal, "height", s.header.Height)
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
	p, err := s.getProposal(t.Proposal)
	if err != nil {
		return nil, err
	}
	if err = s.loadApprovals(); err != nil {
		return nil, err
	}
	for _, idx := range s.approvals {
		if idx == t.Proposal {
			return nil, ErrUnexpectedStatus
		}
	}
	if checkOnly {
		return nil, nil
	}
	proposer, err := s.FindAccount(p.Proposer)
	if err != nil {
		return nil, err
	}
	var slashed uint64
	if proposer != nil {
		slashed, err = s.slashReserved(proposer, p.Bond)
		if err != nil {
			return nil, err
		}
	}
	s.setProposal(t.Proposal, nil)
	s.bumpNonce(a)
	events = append(events,
		types.EncodeEventRejected(&types.EventRejected{Proposal: t.Proposal, Slashed: slashed}),
		types.EncodeEventDeposit(&types.EventDeposit{Amount: slashed}),
	)
	return
}

// ApproveProposal queues the proposal for payout at the next
// settlement. The bond stays reserved until then.
func (s *State) ApproveProposal(t *tx.ApproveProposalTx, caller uint64, checkOnly bool) (events []abci_types.Event, err error) {
	s.logger.Debug("apply approve proposal", "caller", caller, "proposal", t.Proposal, "height", s.header.Height)
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
	if _, err = s.getProposal(t.Proposal); err != nil {
		return nil, err
	}
	if checkOnly {
		return nil, nil
	}
	if err = s.loadApprovals(); err != nil {
		return nil, err
	}
	s.approvals = append(s.approvals, t.Proposal)
	s.approvalsDirty = true
	s.bumpNonce(a)
	return
}
