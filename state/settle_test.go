package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossline/treasury-app/tx"
	"github.com/mossline/treasury-app/types"
)

func TestSettleFundsPaysApprovedQueue(t *testing.T) {
	st, board := newBoardState(t)
	proposer := newTestAccount(t, st, 1000)
	fundTreasury(t, st, 1001)
	benA := testBeneficiary(0xaa)
	benB := testBeneficiary(0xbb)

	_, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: benA}, proposer.Index, false)
	require.NoError(t, err)
	_, err = st.ProposeSpend(&tx.ProposeSpendTx{Value: 200, Beneficiary: benB}, proposer.Index, false)
	require.NoError(t, err)
	_, err = st.ApproveProposal(&tx.ApproveProposalTx{Proposal: 0}, board.Index, false)
	require.NoError(t, err)
	_, err = st.ApproveProposal(&tx.ApproveProposalTx{Proposal: 1}, board.Index, false)
	require.NoError(t, err)

	events, err := st.SettleFunds()
	require.NoError(t, err)

	spending, ok := findEvent(events, types.EventSpendingType)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), types.DecodeEventSpending(spending).Budget)

	var awarded []*types.EventAwarded
	for _, e := range events {
		if e.Type == types.EventAwardedType {
			awarded = append(awarded, types.DecodeEventAwarded(e))
		}
	}
	require.Len(t, awarded, 2)
	assert.Equal(t, uint64(0), awarded[0].Proposal)
	assert.Equal(t, uint64(1), awarded[1].Proposal)

	// surplus of 700 burns 50%
	burnt, ok := findEvent(events, types.EventBurntType)
	require.True(t, ok)
	assert.Equal(t, uint64(350), types.DecodeEventBurnt(burnt).Amount)
	rollover, ok := findEvent(events, types.EventRolloverType)
	require.True(t, ok)
	assert.Equal(t, uint64(350), types.DecodeEventRollover(rollover).Remaining)

	a, err := st.FindAccount(benA)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, uint64(100), a.Free)
	b, err := st.FindAccount(benB)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, uint64(200), b.Free)

	acnt := mustAccount(t, st, proposer.Index)
	assert.Equal(t, uint64(0), acnt.Reserved)
	assert.Equal(t, uint64(1000), acnt.Free)

	assert.Equal(t, uint64(351), treasuryBalance(t, st))
	queue, err := st.Approvals()
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = st.getProposal(0)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestSettleFundsSecondRunPaysNothing(t *testing.T) {
	st, board := newBoardState(t)
	proposer := newTestAccount(t, st, 1000)
	fundTreasury(t, st, 1001)
	ben := testBeneficiary(0xaa)

	_, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: ben}, proposer.Index, false)
	require.NoError(t, err)
	_, err = st.ApproveProposal(&tx.ApproveProposalTx{Proposal: 0}, board.Index, false)
	require.NoError(t, err)

	events, err := st.SettleFunds()
	require.NoError(t, err)
	_, ok := findEvent(events, types.EventAwardedType)
	require.True(t, ok)

	// the queue was drained, so a repeat run awards nothing
	events, err = st.SettleFunds()
	require.NoError(t, err)
	_, ok = findEvent(events, types.EventAwardedType)
	assert.False(t, ok)

	a, err := st.FindAccount(ben)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, uint64(100), a.Free)

	acnt := mustAccount(t, st, proposer.Index)
	assert.Equal(t, uint64(0), acnt.Reserved)
	assert.Equal(t, uint64(1000), acnt.Free)

	queue, err := st.Approvals()
	require.NoError(t, err)
	assert.Empty(t, queue)

	// each clean cycle still burns half the surplus: 450 then 225
	assert.Equal(t, uint64(226), treasuryBalance(t, st))
}

func TestSettleFundsSkipsOversized(t *testing.T) {
	st, board := newBoardState(t)
	proposer := newTestAccount(t, st, 10000)
	fundTreasury(t, st, 101)

	_, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 5000, Beneficiary: testBeneficiary(1)}, proposer.Index, false)
	require.NoError(t, err)
	_, err = st.ApproveProposal(&tx.ApproveProposalTx{Proposal: 0}, board.Index, false)
	require.NoError(t, err)

	events, err := st.SettleFunds()
	require.NoError(t, err)

	_, ok := findEvent(events, types.EventAwardedType)
	assert.False(t, ok)

	// a missed payout suppresses the burn for the cycle
	_, ok = findEvent(events, types.EventBurntType)
	assert.False(t, ok)
	rollover, ok := findEvent(events, types.EventRolloverType)
	require.True(t, ok)
	assert.Equal(t, uint64(100), types.DecodeEventRollover(rollover).Remaining)

	queue, err := st.Approvals()
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, queue)

	// bond stays reserved while the proposal waits
	acnt := mustAccount(t, st, proposer.Index)
	assert.Equal(t, uint64(250), acnt.Reserved)
	assert.Equal(t, uint64(101), treasuryBalance(t, st))
}

func TestSettleFundsDropsStaleEntries(t *testing.T) {
	st, board := newBoardState(t)
	proposer := newTestAccount(t, st, 1000)
	fundTreasury(t, st, 101)

	_, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 50, Beneficiary: testBeneficiary(1)}, proposer.Index, false)
	require.NoError(t, err)
	_, err = st.ApproveProposal(&tx.ApproveProposalTx{Proposal: 0}, board.Index, false)
	require.NoError(t, err)

	// proposal vanishes underneath its queue entry
	st.setProposal(0, nil)

	events, err := st.SettleFunds()
	require.NoError(t, err)
	_, ok := findEvent(events, types.EventAwardedType)
	assert.False(t, ok)

	queue, err := st.Approvals()
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestSettleFundsExactExhaustion(t *testing.T) {
	st, board := newBoardState(t)
	proposer := newTestAccount(t, st, 1000)
	fundTreasury(t, st, 101)

	_, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: testBeneficiary(1)}, proposer.Index, false)
	require.NoError(t, err)
	_, err = st.ApproveProposal(&tx.ApproveProposalTx{Proposal: 0}, board.Index, false)
	require.NoError(t, err)

	events, err := st.SettleFunds()
	require.NoError(t, err)

	_, ok := findEvent(events, types.EventAwardedType)
	assert.True(t, ok)

	// nothing was missed, so the burn event fires even at zero
	burnt, ok := findEvent(events, types.EventBurntType)
	require.True(t, ok)
	assert.Equal(t, uint64(0), types.DecodeEventBurnt(burnt).Amount)
	rollover, ok := findEvent(events, types.EventRolloverType)
	require.True(t, ok)
	assert.Equal(t, uint64(0), types.DecodeEventRollover(rollover).Remaining)

	// only the retention floor survives in the pot account
	assert.Equal(t, uint64(1), treasuryBalance(t, st))
}

func TestSettleFundsActivatesBounties(t *testing.T) {
	f := newBountyFixture(t)
	curator := f.curatorAddr(t)

	_, err := f.st.ProposeBounty(&tx.ProposeBountyTx{
		Curator:     curator,
		Value:       500,
		Fee:         50,
		Description: []byte("fix the parser"),
	}, f.proposer, false)
	require.NoError(t, err)
	_, err = f.st.ApproveBounty(&tx.ApproveBountyTx{Bounty: 0}, f.board, false)
	require.NoError(t, err)

	queue, err := f.st.BountyApprovals()
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, queue)

	fundTreasury(t, f.st, 1001)
	events, err := f.st.SettleFunds()
	require.NoError(t, err)

	active, ok := findEvent(events, types.EventBountyActiveType)
	require.True(t, ok)
	ev := types.DecodeEventBountyBecameActive(active)
	require.NotNil(t, ev)
	assert.Equal(t, uint64(20), ev.Expires)

	b, err := f.st.getBounty(0)
	require.NoError(t, err)
	assert.Equal(t, types.BountyStatusActive, b.Status)
	assert.Equal(t, uint64(20), b.Expires)

	funds, err := f.st.freeBalance(BountyAddress(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(500), funds)

	queue, err = f.st.BountyApprovals()
	require.NoError(t, err)
	assert.Empty(t, queue)

	acnt := mustAccount(t, f.st, f.proposer)
	assert.Equal(t, uint64(0), acnt.Reserved)
}

func TestSettleFundsOversizedBountyWaits(t *testing.T) {
	f := newBountyFixture(t)

	_, err := f.st.ProposeBounty(&tx.ProposeBountyTx{
		Curator:     f.curatorAddr(t),
		Value:       500,
		Fee:         50,
		Description: []byte("fix the parser"),
	}, f.proposer, false)
	require.NoError(t, err)
	_, err = f.st.ApproveBounty(&tx.ApproveBountyTx{Bounty: 0}, f.board, false)
	require.NoError(t, err)

	fundTreasury(t, f.st, 101)
	events, err := f.st.SettleFunds()
	require.NoError(t, err)

	_, ok := findEvent(events, types.EventBountyActiveType)
	assert.False(t, ok)
	_, ok = findEvent(events, types.EventBurntType)
	assert.False(t, ok)

	b, err := f.st.getBounty(0)
	require.NoError(t, err)
	assert.Equal(t, types.BountyStatusApproved, b.Status)

	queue, err := f.st.BountyApprovals()
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, queue)
}
