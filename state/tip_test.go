package state

import (
	"bytes"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossline/treasury-app/tx"
	"github.com/mossline/treasury-app/types"
)

// newTipperState builds a state with n funded electorate members plus
// one funded outsider to act as finder.
func newTipperState(t *testing.T, n int) (st *State, tippers []*Account, finder *Account) {
	t.Helper()
	pks := make([][]byte, n)
	addrs := make([][]byte, n)
	for i := 0; i < n; i++ {
		pk := ed25519.GenPrivKey().PubKey()
		pks[i] = pk.Bytes()
		addrs[i] = pk.Address().Bytes()
	}
	st = newTestState(t, NewAuthoritySet(nil, nil, addrs))
	tippers = make([]*Account, n)
	for i := 0; i < n; i++ {
		a := &Account{PubKey: pks[i], Free: 100}
		require.NoError(t, st.AddAccount(a))
		tippers[i] = mustAccount(t, st, a.Index)
	}
	finder = newTestAccount(t, st, 100)
	return
}

func TestReportAwesomeHoldsDeposit(t *testing.T) {
	st, _, finder := newTipperState(t, 3)
	reason := []byte("great work")
	who := testBeneficiary(0x77)

	events, err := st.ReportAwesome(&tx.ReportAwesomeTx{Reason: reason, Who: who}, finder.Index, false)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := types.DecodeEventNewTip(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, "great work", ev.Reason)
	assert.Equal(t, types.Addr(who), ev.Who)

	// deposit scales with the reason length
	acnt := mustAccount(t, st, finder.Index)
	assert.Equal(t, uint64(89), acnt.Free)
	assert.Equal(t, uint64(11), acnt.Reserved)

	_, tipHash := TipDigest(reason, who)
	tip, err := st.getTip(tipHash)
	require.NoError(t, err)
	assert.True(t, tip.FindersFee)
	assert.Equal(t, uint64(11), tip.Deposit)
	assert.Empty(t, tip.Tips)
	assert.Nil(t, tip.ClosesAt)

	_, err = st.ReportAwesome(&tx.ReportAwesomeTx{Reason: reason, Who: who}, finder.Index, false)
	assert.ErrorIs(t, err, ErrAlreadyKnown)
}

func TestReportAwesomeValidation(t *testing.T) {
	st, _, finder := newTipperState(t, 3)

	_, err := st.ReportAwesome(&tx.ReportAwesomeTx{Reason: []byte("r"), Who: []byte{1}}, finder.Index, false)
	assert.ErrorIs(t, err, ErrInvalidValue)

	huge := make([]byte, 16385)
	_, err = st.ReportAwesome(&tx.ReportAwesomeTx{Reason: huge, Who: testBeneficiary(1)}, finder.Index, false)
	assert.ErrorIs(t, err, ErrReasonTooBig)

	long := make([]byte, 200)
	_, err = st.ReportAwesome(&tx.ReportAwesomeTx{Reason: long, Who: testBeneficiary(1)}, finder.Index, false)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRetractTip(t *testing.T) {
	st, tippers, finder := newTipperState(t, 3)
	reason := []byte("found a bug")
	who := testBeneficiary(0x77)

	_, err := st.ReportAwesome(&tx.ReportAwesomeTx{Reason: reason, Who: who}, finder.Index, false)
	require.NoError(t, err)
	_, tipHash := TipDigest(reason, who)

	_, err = st.RetractTip(&tx.RetractTipTx{Hash: tipHash[:]}, tippers[0].Index, false)
	assert.ErrorIs(t, err, ErrNotFinder)

	events, err := st.RetractTip(&tx.RetractTipTx{Hash: tipHash[:]}, finder.Index, false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotNil(t, types.DecodeEventTipRetracted(events[0]))

	acnt := mustAccount(t, st, finder.Index)
	assert.Equal(t, uint64(100), acnt.Free)
	assert.Equal(t, uint64(0), acnt.Reserved)

	_, err = st.getTip(tipHash)
	assert.ErrorIs(t, err, ErrUnknownTip)

	// retracting frees the reason for a fresh report
	_, err = st.ReportAwesome(&tx.ReportAwesomeTx{Reason: reason, Who: who}, finder.Index, false)
	require.NoError(t, err)
}

func TestTipMajorityArmsCountdown(t *testing.T) {
	st, tippers, finder := newTipperState(t, 5)
	reason := []byte("rescue")
	who := testBeneficiary(0x77)

	_, err := st.ReportAwesome(&tx.ReportAwesomeTx{Reason: reason, Who: who}, finder.Index, false)
	require.NoError(t, err)
	_, tipHash := TipDigest(reason, who)

	_, err = st.CloseTip(&tx.CloseTipTx{Hash: tipHash[:]}, finder.Index, false)
	assert.ErrorIs(t, err, ErrStillOpen)

	_, err = st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: 10}, finder.Index, false)
	assert.ErrorIs(t, err, ErrNotTipper)

	events, err := st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: 10}, tippers[0].Index, false)
	require.NoError(t, err)
	assert.Empty(t, events)
	events, err = st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: 1_000_000}, tippers[1].Index, false)
	require.NoError(t, err)
	assert.Empty(t, events)

	// the third of five declarations is the majority
	events, err = st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: 20}, tippers[2].Index, false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := types.DecodeEventTipClosing(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(1), ev.ClosesAt)

	_, err = st.CloseTip(&tx.CloseTipTx{Hash: tipHash[:]}, finder.Index, false)
	assert.ErrorIs(t, err, ErrPremature)
}

func TestCloseTipPaysMedian(t *testing.T) {
	st, tippers, finder := newTipperState(t, 5)
	fundTreasury(t, st, 1_000_001)
	reason := []byte("rescue")
	who := testBeneficiary(0x77)

	_, err := st.ReportAwesome(&tx.ReportAwesomeTx{Reason: reason, Who: who}, finder.Index, false)
	require.NoError(t, err)
	_, tipHash := TipDigest(reason, who)

	for i, amount := range []uint64{10, 1_000_000, 20} {
		_, err = st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: amount}, tippers[i].Index, false)
		require.NoError(t, err)
	}

	st.header.Height = 1
	events, err := st.CloseTip(&tx.CloseTipTx{Hash: tipHash[:]}, finder.Index, false)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// median of {10, 20, 1000000} is 20, finder takes 20% of it
	ev := types.DecodeEventTipClosed(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(16), ev.Payout)

	whoAcnt, err := st.FindAccount(who)
	require.NoError(t, err)
	require.NotNil(t, whoAcnt)
	assert.Equal(t, uint64(16), whoAcnt.Free)

	finderAcnt := mustAccount(t, st, finder.Index)
	assert.Equal(t, uint64(104), finderAcnt.Free)
	assert.Equal(t, uint64(0), finderAcnt.Reserved)

	assert.Equal(t, uint64(999_981), treasuryBalance(t, st))

	_, err = st.getTip(tipHash)
	assert.ErrorIs(t, err, ErrUnknownTip)
}

func TestCloseTipEvenCountPaysUpperMedian(t *testing.T) {
	st, tippers, finder := newTipperState(t, 2)
	fundTreasury(t, st, 2_000_000)
	reason := []byte("rescue")
	who := testBeneficiary(0x77)

	_, err := st.ReportAwesome(&tx.ReportAwesomeTx{Reason: reason, Who: who}, finder.Index, false)
	require.NoError(t, err)
	_, tipHash := TipDigest(reason, who)

	for i, amount := range []uint64{10, 1_000_000} {
		_, err = st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: amount}, tippers[i].Index, false)
		require.NoError(t, err)
	}

	st.header.Height = 1
	events, err := st.CloseTip(&tx.CloseTipTx{Hash: tipHash[:]}, finder.Index, false)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// with two declarations the higher one wins, finder takes 20% of it
	ev := types.DecodeEventTipClosed(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(800_000), ev.Payout)

	whoAcnt, err := st.FindAccount(who)
	require.NoError(t, err)
	require.NotNil(t, whoAcnt)
	assert.Equal(t, uint64(800_000), whoAcnt.Free)

	finderAcnt := mustAccount(t, st, finder.Index)
	assert.Equal(t, uint64(200_100), finderAcnt.Free)
	assert.Equal(t, uint64(0), finderAcnt.Reserved)

	assert.Equal(t, uint64(1_000_000), treasuryBalance(t, st))
}

func TestCloseTipMedianIgnoresRunaway(t *testing.T) {
	st, tippers, _ := newTipperState(t, 5)
	fundTreasury(t, st, 100)
	reason := []byte("modest tip")
	who := testBeneficiary(0x55)

	_, err := st.TipNew(&tx.TipNewTx{Reason: reason, Who: who, Amount: 0}, tippers[0].Index, false)
	require.NoError(t, err)
	_, tipHash := TipDigest(reason, who)

	for i, amount := range []uint64{10, 1_000_000} {
		_, err = st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: amount}, tippers[i+1].Index, false)
		require.NoError(t, err)
	}

	st.header.Height = 1
	events, err := st.CloseTip(&tx.CloseTipTx{Hash: tipHash[:]}, tippers[0].Index, false)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// median of {0, 10, 1000000} is 10, one runaway declaration does not
	// drag the payout up
	ev := types.DecodeEventTipClosed(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(10), ev.Payout)

	whoAcnt, err := st.FindAccount(who)
	require.NoError(t, err)
	require.NotNil(t, whoAcnt)
	assert.Equal(t, uint64(10), whoAcnt.Free)

	assert.Equal(t, uint64(90), treasuryBalance(t, st))
}

func TestTipNew(t *testing.T) {
	st, tippers, finder := newTipperState(t, 5)
	reason := []byte("deserves it")
	who := testBeneficiary(0x77)

	_, err := st.TipNew(&tx.TipNewTx{Reason: reason, Who: who, Amount: 50}, finder.Index, false)
	assert.ErrorIs(t, err, ErrNotTipper)

	events, err := st.TipNew(&tx.TipNewTx{Reason: reason, Who: who, Amount: 50}, tippers[0].Index, false)
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, tipHash := TipDigest(reason, who)
	tip, err := st.getTip(tipHash)
	require.NoError(t, err)
	assert.False(t, tip.FindersFee)
	assert.Equal(t, uint64(0), tip.Deposit)
	require.Len(t, tip.Tips, 1)
	assert.Equal(t, uint64(50), tip.Tips[0].Amount)

	// the seed declaration alone is below the majority
	assert.Nil(t, tip.ClosesAt)

	// no deposit is held from electorate members
	acnt := mustAccount(t, st, tippers[0].Index)
	assert.Equal(t, uint64(100), acnt.Free)
	assert.Equal(t, uint64(0), acnt.Reserved)

	_, err = st.TipNew(&tx.TipNewTx{Reason: reason, Who: who, Amount: 50}, tippers[1].Index, false)
	assert.ErrorIs(t, err, ErrAlreadyKnown)
}

func TestTipPayoutClampedToPot(t *testing.T) {
	st, tippers, _ := newTipperState(t, 3)
	fundTreasury(t, st, 51)
	reason := []byte("big ask")
	who := testBeneficiary(0x77)

	_, err := st.TipNew(&tx.TipNewTx{Reason: reason, Who: who, Amount: 1000}, tippers[0].Index, false)
	require.NoError(t, err)
	_, tipHash := TipDigest(reason, who)

	// the second of three declarations arms the countdown
	events, err := st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: 1000}, tippers[1].Index, false)
	require.NoError(t, err)
	require.Len(t, events, 1)

	st.header.Height = 1
	events, err = st.CloseTip(&tx.CloseTipTx{Hash: tipHash[:]}, tippers[1].Index, false)
	require.NoError(t, err)
	ev := types.DecodeEventTipClosed(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint64(50), ev.Payout)

	whoAcnt, err := st.FindAccount(who)
	require.NoError(t, err)
	require.NotNil(t, whoAcnt)
	assert.Equal(t, uint64(50), whoAcnt.Free)
	assert.Equal(t, uint64(1), treasuryBalance(t, st))
}

func TestTipPrunesDeauthorizedDeclarations(t *testing.T) {
	st, tippers, finder := newTipperState(t, 3)
	reason := []byte("rescue")
	who := testBeneficiary(0x77)

	_, err := st.ReportAwesome(&tx.ReportAwesomeTx{Reason: reason, Who: who}, finder.Index, false)
	require.NoError(t, err)
	_, tipHash := TipDigest(reason, who)

	// plant a declaration from an address outside the electorate
	tip, err := st.getTip(tipHash)
	require.NoError(t, err)
	tip.Tips = []types.TipContribution{{Tipper: testBeneficiary(0xde), Amount: 5}}
	st.modTips[tipHash] = tip

	_, err = st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: 10}, tippers[0].Index, false)
	require.NoError(t, err)

	tip, err = st.getTip(tipHash)
	require.NoError(t, err)
	require.Len(t, tip.Tips, 1)
	assert.True(t, bytes.Equal(tip.Tips[0].Tipper, tippers[0].AddrBytes()))
}

func TestTipUpdatesOwnDeclaration(t *testing.T) {
	st, tippers, finder := newTipperState(t, 5)
	reason := []byte("rescue")
	who := testBeneficiary(0x77)

	_, err := st.ReportAwesome(&tx.ReportAwesomeTx{Reason: reason, Who: who}, finder.Index, false)
	require.NoError(t, err)
	_, tipHash := TipDigest(reason, who)

	_, err = st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: 10}, tippers[0].Index, false)
	require.NoError(t, err)
	_, err = st.Tip(&tx.TipTx{Hash: tipHash[:], Amount: 30}, tippers[0].Index, false)
	require.NoError(t, err)

	tip, err := st.getTip(tipHash)
	require.NoError(t, err)
	require.Len(t, tip.Tips, 1)
	assert.Equal(t, uint64(30), tip.Tips[0].Amount)
}
