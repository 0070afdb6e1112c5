package state

import (
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossline/treasury-app/tx"
	"github.com/mossline/treasury-app/types"
)

type bountyFixture struct {
	st       *State
	board    uint64
	proposer uint64
	curator  uint64
}

func newBountyFixture(t *testing.T) *bountyFixture {
	t.Helper()
	boardPK := ed25519.GenPrivKey().PubKey()
	addr := boardPK.Address().Bytes()
	st := newTestState(t, NewAuthoritySet([][]byte{addr}, [][]byte{addr}, nil))
	board := &Account{PubKey: boardPK.Bytes(), Free: 10}
	require.NoError(t, st.AddAccount(board))
	proposer := newTestAccount(t, st, 1000)
	curator := newTestAccount(t, st, 10)
	return &bountyFixture{
		st:       st,
		board:    board.Index,
		proposer: proposer.Index,
		curator:  curator.Index,
	}
}

func (f *bountyFixture) curatorAddr(t *testing.T) []byte {
	t.Helper()
	return mustAccount(t, f.st, f.curator).AddrBytes()
}

// activeBounty runs propose, approve and one settlement so the bounty
// ends up funded and active.
func (f *bountyFixture) activeBounty(t *testing.T, value, fee uint64) uint64 {
	t.Helper()
	idx := f.st.BountyCount()
	_, err := f.st.ProposeBounty(&tx.ProposeBountyTx{
		Curator:     f.curatorAddr(t),
		Value:       value,
		Fee:         fee,
		Description: []byte("fix the parser"),
	}, f.proposer, false)
	require.NoError(t, err)
	_, err = f.st.ApproveBounty(&tx.ApproveBountyTx{Bounty: idx}, f.board, false)
	require.NoError(t, err)
	fundTreasury(t, f.st, value*2+1)
	_, err = f.st.SettleFunds()
	require.NoError(t, err)
	b, err := f.st.getBounty(idx)
	require.NoError(t, err)
	require.Equal(t, types.BountyStatusActive, b.Status)
	return idx
}

func TestProposeBountyValidation(t *testing.T) {
	f := newBountyFixture(t)
	curator := f.curatorAddr(t)

	_, err := f.st.ProposeBounty(&tx.ProposeBountyTx{Curator: curator, Value: 100, Fee: 100, Description: []byte("d")}, f.proposer, false)
	assert.ErrorIs(t, err, ErrInvalidFee)

	_, err = f.st.ProposeBounty(&tx.ProposeBountyTx{Curator: curator, Value: 0, Fee: 0, Description: []byte("d")}, f.proposer, false)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = f.st.ProposeBounty(&tx.ProposeBountyTx{Curator: []byte{1, 2}, Value: 100, Fee: 10, Description: []byte("d")}, f.proposer, false)
	assert.ErrorIs(t, err, ErrInvalidValue)

	huge := make([]byte, 16385)
	_, err = f.st.ProposeBounty(&tx.ProposeBountyTx{Curator: curator, Value: 100, Fee: 10, Description: huge}, f.proposer, false)
	assert.ErrorIs(t, err, ErrReasonTooBig)

	// bond exceeds the curator account's own free balance
	_, err = f.st.ProposeBounty(&tx.ProposeBountyTx{Curator: curator, Value: 100, Fee: 10, Description: []byte("d")}, f.curator, false)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.Equal(t, uint64(0), f.st.BountyCount())
}

func TestProposeBountyReservesBond(t *testing.T) {
	f := newBountyFixture(t)

	events, err := f.st.ProposeBounty(&tx.ProposeBountyTx{
		Curator:     f.curatorAddr(t),
		Value:       500,
		Fee:         50,
		Description: []byte("fix the parser"),
	}, f.proposer, false)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := types.DecodeEventBountyProposed(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(0), ev.Bounty)
	assert.Equal(t, uint64(500), ev.Value)
	assert.False(t, ev.Sub)

	// bond is the base plus one unit per description byte
	acnt := mustAccount(t, f.st, f.proposer)
	assert.Equal(t, uint64(94), acnt.Reserved)

	b, err := f.st.getBounty(0)
	require.NoError(t, err)
	assert.Equal(t, types.BountyStatusProposed, b.Status)
	assert.Equal(t, uint64(94), b.Bond)
	assert.Nil(t, b.Parent)
}

func TestRejectBounty(t *testing.T) {
	f := newBountyFixture(t)
	_, err := f.st.ProposeBounty(&tx.ProposeBountyTx{
		Curator:     f.curatorAddr(t),
		Value:       500,
		Fee:         50,
		Description: []byte("fix the parser"),
	}, f.proposer, false)
	require.NoError(t, err)

	_, err = f.st.RejectBounty(&tx.RejectBountyTx{Bounty: 0}, f.proposer, false)
	assert.ErrorIs(t, err, ErrNotRejector)

	events, err := f.st.RejectBounty(&tx.RejectBountyTx{Bounty: 0}, f.board, false)
	require.NoError(t, err)
	require.Len(t, events, 2)
	ev := types.DecodeEventBountyRejected(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(94), ev.Slashed)

	acnt := mustAccount(t, f.st, f.proposer)
	assert.Equal(t, uint64(906), acnt.Free)
	assert.Equal(t, uint64(0), acnt.Reserved)
	assert.Equal(t, uint64(94), treasuryBalance(t, f.st))

	_, err = f.st.getBounty(0)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestBountyLifecycle(t *testing.T) {
	f := newBountyFixture(t)
	idx := f.activeBounty(t, 500, 50)

	// bond released at settlement, sub-account funded
	acnt := mustAccount(t, f.st, f.proposer)
	assert.Equal(t, uint64(0), acnt.Reserved)
	assert.Equal(t, uint64(1000), acnt.Free)
	balance, err := f.st.freeBalance(BountyAddress(idx))
	require.NoError(t, err)
	assert.Equal(t, uint64(500), balance)

	beneficiary := testBeneficiary(0xbe)
	_, err = f.st.AwardBounty(&tx.AwardBountyTx{Bounty: idx, Beneficiary: beneficiary}, f.proposer, false)
	assert.ErrorIs(t, err, ErrRequireCurator)

	events, err := f.st.AwardBounty(&tx.AwardBountyTx{Bounty: idx, Beneficiary: beneficiary}, f.curator, false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	aw := types.DecodeEventBountyAwarded(events[0])
	require.NotNil(t, aw)
	assert.Equal(t, uint64(3), aw.UnlockAt)

	_, err = f.st.ClaimBounty(&tx.ClaimBountyTx{Bounty: idx}, f.proposer, false)
	assert.ErrorIs(t, err, ErrPremature)

	f.st.header.Height = 3
	events, err = f.st.ClaimBounty(&tx.ClaimBountyTx{Bounty: idx}, f.proposer, false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	cl := types.DecodeEventBountyClaimed(events[0])
	require.NotNil(t, cl)
	assert.Equal(t, uint64(450), cl.Payout)

	curator := mustAccount(t, f.st, f.curator)
	assert.Equal(t, uint64(60), curator.Free)
	ben, err := f.st.FindAccount(beneficiary)
	require.NoError(t, err)
	require.NotNil(t, ben)
	assert.Equal(t, uint64(450), ben.Free)

	_, err = f.st.getBounty(idx)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestAwardBountyRequiresActive(t *testing.T) {
	f := newBountyFixture(t)
	_, err := f.st.ProposeBounty(&tx.ProposeBountyTx{
		Curator:     f.curatorAddr(t),
		Value:       500,
		Fee:         50,
		Description: []byte("fix the parser"),
	}, f.proposer, false)
	require.NoError(t, err)

	_, err = f.st.AwardBounty(&tx.AwardBountyTx{Bounty: 0, Beneficiary: testBeneficiary(1)}, f.curator, false)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestSubBounty(t *testing.T) {
	f := newBountyFixture(t)
	parent := f.activeBounty(t, 500, 50)
	curator := f.curatorAddr(t)

	_, err := f.st.ProposeSubBounty(&tx.ProposeSubBountyTx{
		Parent: parent, Curator: curator, Value: 100, Fee: 10, Description: []byte("sub task"),
	}, f.proposer, false)
	assert.ErrorIs(t, err, ErrRequireCurator)

	_, err = f.st.ProposeSubBounty(&tx.ProposeSubBountyTx{
		Parent: parent, Curator: curator, Value: 100, Fee: 60, Description: []byte("sub task"),
	}, f.curator, false)
	assert.ErrorIs(t, err, ErrInvalidFee)

	_, err = f.st.ProposeSubBounty(&tx.ProposeSubBountyTx{
		Parent: parent, Curator: curator, Value: 600, Fee: 10, Description: []byte("sub task"),
	}, f.curator, false)
	assert.ErrorIs(t, err, ErrInvalidValue)

	events, err := f.st.ProposeSubBounty(&tx.ProposeSubBountyTx{
		Parent: parent, Curator: curator, Value: 100, Fee: 10, Description: []byte("sub task"),
	}, f.curator, false)
	require.NoError(t, err)
	require.Len(t, events, 2)

	ev := types.DecodeEventBountyProposed(events[0])
	require.NotNil(t, ev)
	assert.True(t, ev.Sub)
	assert.Equal(t, parent, ev.Parent)
	assert.NotNil(t, types.DecodeEventBountyBecameActive(events[1]))

	child, err := f.st.getBounty(ev.Bounty)
	require.NoError(t, err)
	assert.Equal(t, types.BountyStatusActive, child.Status)
	assert.Equal(t, uint64(0), child.Bond)
	require.NotNil(t, child.Parent)
	assert.Equal(t, parent, *child.Parent)

	// the child is carved out of the parent's value, fee and funds
	parentB, err := f.st.getBounty(parent)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), parentB.Value)
	assert.Equal(t, uint64(40), parentB.Fee)

	parentFunds, err := f.st.freeBalance(BountyAddress(parent))
	require.NoError(t, err)
	assert.Equal(t, uint64(400), parentFunds)
	childFunds, err := f.st.freeBalance(BountyAddress(ev.Bounty))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), childFunds)
}

func TestSubBountyDepthLimit(t *testing.T) {
	f := newBountyFixture(t)
	parent := f.activeBounty(t, 500, 50)
	curator := f.curatorAddr(t)

	values := []uint64{400, 300, 200}
	fees := []uint64{40, 30, 20}
	for i := 0; i < 3; i++ {
		events, err := f.st.ProposeSubBounty(&tx.ProposeSubBountyTx{
			Parent: parent + uint64(i), Curator: curator, Value: values[i], Fee: fees[i], Description: []byte("sub"),
		}, f.curator, false)
		require.NoError(t, err)
		ev := types.DecodeEventBountyProposed(events[0])
		require.NotNil(t, ev)
		require.Equal(t, parent+uint64(i)+1, ev.Bounty)
	}

	_, err := f.st.ProposeSubBounty(&tx.ProposeSubBountyTx{
		Parent: parent + 3, Curator: curator, Value: 100, Fee: 10, Description: []byte("sub"),
	}, f.curator, false)
	assert.ErrorIs(t, err, ErrExceedDepthLimit)
}

func TestCancelBounty(t *testing.T) {
	f := newBountyFixture(t)
	idx := f.activeBounty(t, 500, 50)
	before := treasuryBalance(t, f.st)

	_, err := f.st.CancelBounty(&tx.CancelBountyTx{Bounty: idx}, f.proposer, false)
	assert.ErrorIs(t, err, ErrRequireCurator)

	events, err := f.st.CancelBounty(&tx.CancelBountyTx{Bounty: idx}, f.curator, false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := types.DecodeEventBountyCanceled(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(500), ev.Refunded)

	assert.Equal(t, before+500, treasuryBalance(t, f.st))
	_, err = f.st.getBounty(idx)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestCancelExpiredBountyByAnyone(t *testing.T) {
	f := newBountyFixture(t)
	idx := f.activeBounty(t, 500, 50)

	b, err := f.st.getBounty(idx)
	require.NoError(t, err)
	f.st.header.Height = b.Expires

	_, err = f.st.CancelBounty(&tx.CancelBountyTx{Bounty: idx}, f.proposer, false)
	require.NoError(t, err)
}

func TestExtendBountyExpiry(t *testing.T) {
	f := newBountyFixture(t)
	idx := f.activeBounty(t, 500, 50)

	_, err := f.st.ExtendBountyExpiry(&tx.ExtendBountyExpiryTx{Bounty: idx}, f.proposer, false)
	assert.ErrorIs(t, err, ErrRequireCurator)

	f.st.header.Height = 10
	events, err := f.st.ExtendBountyExpiry(&tx.ExtendBountyExpiryTx{Bounty: idx}, f.curator, false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := types.DecodeEventBountyExtended(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(30), ev.Expires)

	b, err := f.st.getBounty(idx)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), b.Expires)
}

func TestUpdateBountyValueMinimum(t *testing.T) {
	f := newBountyFixture(t)
	assert.Equal(t, uint64(1), f.st.BountyValueMinimum())

	_, err := f.st.UpdateBountyValueMinimum(&tx.UpdateBountyValueMinimumTx{Value: 200}, f.proposer, false)
	assert.ErrorIs(t, err, ErrNotApprover)

	events, err := f.st.UpdateBountyValueMinimum(&tx.UpdateBountyValueMinimumTx{Value: 200}, f.board, false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := types.DecodeEventBountyValueMinimum(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(200), ev.Value)
	assert.Equal(t, uint64(200), f.st.BountyValueMinimum())

	_, err = f.st.ProposeBounty(&tx.ProposeBountyTx{
		Curator:     f.curatorAddr(t),
		Value:       100,
		Fee:         10,
		Description: []byte("d"),
	}, f.proposer, false)
	assert.ErrorIs(t, err, ErrInvalidValue)
}
