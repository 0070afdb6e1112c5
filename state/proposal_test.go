package state

import (
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossline/treasury-app/tx"
	"github.com/mossline/treasury-app/types"
)

// newBoardState builds a state whose single board account is both
// approver and rejector.
func newBoardState(t *testing.T) (*State, *Account) {
	t.Helper()
	pk := ed25519.GenPrivKey().PubKey()
	addr := pk.Address().Bytes()
	st := newTestState(t, NewAuthoritySet([][]byte{addr}, [][]byte{addr}, nil))
	board := &Account{PubKey: pk.Bytes(), Free: 10}
	require.NoError(t, st.AddAccount(board))
	return st, mustAccount(t, st, board.Index)
}

func TestProposeSpendReservesBond(t *testing.T) {
	st := newTestState(t, nil)
	proposer := newTestAccount(t, st, 1000)
	beneficiary := testBeneficiary(0xbe)

	events, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: beneficiary}, proposer.Index, false)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := types.DecodeEventProposed(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(0), ev.Proposal)
	assert.Equal(t, uint64(100), ev.Value)
	assert.Equal(t, uint64(5), ev.Bond)
	assert.Equal(t, types.Addr(beneficiary), ev.Beneficiary)

	acnt := mustAccount(t, st, proposer.Index)
	assert.Equal(t, uint64(995), acnt.Free)
	assert.Equal(t, uint64(5), acnt.Reserved)
	assert.Equal(t, uint64(1), acnt.Nonce)
	assert.Equal(t, uint64(1), st.ProposalCount())

	p, err := st.getProposal(0)
	require.NoError(t, err)
	assert.Equal(t, acnt.AddrBytes(), p.Proposer)
	assert.Equal(t, uint64(5), p.Bond)
}

func TestProposeSpendValidation(t *testing.T) {
	st := newTestState(t, nil)
	proposer := newTestAccount(t, st, 3)

	_, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: []byte{1, 2, 3}}, proposer.Index, false)
	assert.ErrorIs(t, err, ErrInvalidValue)

	// bond of 5 exceeds the proposer's free balance
	_, err = st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: testBeneficiary(1)}, proposer.Index, false)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = st.ProposeSpend(&tx.ProposeSpendTx{Value: 10, Beneficiary: testBeneficiary(1)}, proposer.Index+100, false)
	assert.ErrorIs(t, err, ErrAccountNoexists)

	assert.Equal(t, uint64(0), st.ProposalCount())
}

func TestProposeSpendCheckOnly(t *testing.T) {
	st := newTestState(t, nil)
	proposer := newTestAccount(t, st, 1000)

	events, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: testBeneficiary(1)}, proposer.Index, true)
	require.NoError(t, err)
	assert.Empty(t, events)

	acnt := mustAccount(t, st, proposer.Index)
	assert.Equal(t, uint64(1000), acnt.Free)
	assert.Equal(t, uint64(0), acnt.Reserved)
	assert.Equal(t, uint64(0), acnt.Nonce)
	assert.Equal(t, uint64(0), st.ProposalCount())
}

func TestApproveProposal(t *testing.T) {
	st, board := newBoardState(t)
	proposer := newTestAccount(t, st, 1000)

	_, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: testBeneficiary(1)}, proposer.Index, false)
	require.NoError(t, err)

	_, err = st.ApproveProposal(&tx.ApproveProposalTx{Proposal: 0}, proposer.Index, false)
	assert.ErrorIs(t, err, ErrNotApprover)

	_, err = st.ApproveProposal(&tx.ApproveProposalTx{Proposal: 9}, board.Index, false)
	assert.ErrorIs(t, err, ErrInvalidIndex)

	events, err := st.ApproveProposal(&tx.ApproveProposalTx{Proposal: 0}, board.Index, false)
	require.NoError(t, err)
	assert.Empty(t, events)

	queue, err := st.Approvals()
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, queue)

	// the bond stays reserved until settlement
	acnt := mustAccount(t, st, proposer.Index)
	assert.Equal(t, uint64(5), acnt.Reserved)
}

func TestRejectProposalSlashesBond(t *testing.T) {
	st, board := newBoardState(t)
	proposer := newTestAccount(t, st, 1000)

	_, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: testBeneficiary(1)}, proposer.Index, false)
	require.NoError(t, err)

	_, err = st.RejectProposal(&tx.RejectProposalTx{Proposal: 0}, proposer.Index, false)
	assert.ErrorIs(t, err, ErrNotRejector)

	events, err := st.RejectProposal(&tx.RejectProposalTx{Proposal: 0}, board.Index, false)
	require.NoError(t, err)
	require.Len(t, events, 2)

	ev := types.DecodeEventRejected(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(5), ev.Slashed)

	acnt := mustAccount(t, st, proposer.Index)
	assert.Equal(t, uint64(995), acnt.Free)
	assert.Equal(t, uint64(0), acnt.Reserved)
	assert.Equal(t, uint64(5), treasuryBalance(t, st))

	_, err = st.getProposal(0)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestRejectProposalRefusesQueued(t *testing.T) {
	st, board := newBoardState(t)
	proposer := newTestAccount(t, st, 1000)

	_, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: testBeneficiary(1)}, proposer.Index, false)
	require.NoError(t, err)
	_, err = st.ApproveProposal(&tx.ApproveProposalTx{Proposal: 0}, board.Index, false)
	require.NoError(t, err)

	_, err = st.RejectProposal(&tx.RejectProposalTx{Proposal: 0}, board.Index, false)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}
