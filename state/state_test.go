package state

import (
	"testing"

	abci_types "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossline/treasury-app/config"
	"github.com/mossline/treasury-app/tx"
)

func newTestState(t *testing.T, auth Authority) *State {
	t.Helper()
	if auth == nil {
		auth = NewAuthoritySet(nil, nil, nil)
	}
	ldb, err := dbm.NewDB("treasury", "goleveldb", t.TempDir())
	require.NoError(t, err)
	logger := cmtlog.NewNopLogger()
	tree := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(logger))
	_, err = tree.Load()
	require.NoError(t, err)
	st := newState(tree, logger, *config.DefaultTreasuryParams(), auth)
	require.NoError(t, st.load())
	return st
}

// newTestAccount adds a funded key-bearing account and returns the
// live copy held by the state.
func newTestAccount(t *testing.T, st *State, free uint64) *Account {
	t.Helper()
	pk := ed25519.GenPrivKey().PubKey()
	a := &Account{PubKey: pk.Bytes(), Free: free}
	require.NoError(t, st.AddAccount(a))
	return mustAccount(t, st, a.Index)
}

// mustAccount re-reads an account. State operations replace the staged
// copy, so balances must always be asserted on a fresh fetch.
func mustAccount(t *testing.T, st *State, idx uint64) *Account {
	t.Helper()
	a, err := st.GetAccount(idx)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func fundTreasury(t *testing.T, st *State, amount uint64) {
	t.Helper()
	require.NoError(t, st.Mint(TreasuryAddress(), amount))
}

func treasuryBalance(t *testing.T, st *State) uint64 {
	t.Helper()
	free, err := st.freeBalance(TreasuryAddress())
	require.NoError(t, err)
	return free
}

func findEvent(events []abci_types.Event, typ string) (abci_types.Event, bool) {
	for _, e := range events {
		if e.Type == typ {
			return e, true
		}
	}
	return abci_types.Event{}, false
}

func testBeneficiary(fill byte) []byte {
	b := make([]byte, 20)
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestPotKeepsRetentionFloor(t *testing.T) {
	st := newTestState(t, nil)

	pot, err := st.Pot()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pot)

	fundTreasury(t, st, 1)
	pot, err = st.Pot()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pot)

	fundTreasury(t, st, 100)
	pot, err = st.Pot()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), pot)
}

func TestAddAccountAssignsIndexes(t *testing.T) {
	st := newTestState(t, nil)

	a := newTestAccount(t, st, 10)
	b := newTestAccount(t, st, 20)
	assert.Equal(t, uint64(StartAccountIdx), a.Index)
	assert.Equal(t, uint64(StartAccountIdx+1), b.Index)

	dup := &Account{PubKey: a.PubKey, Free: 1}
	assert.ErrorIs(t, st.AddAccount(dup), ErrAccountAlreadyExists)

	found, err := st.FindAccount(a.AddrBytes())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, a.Index, found.Index)
}

func TestStatePersistsAcrossReload(t *testing.T) {
	st := newTestState(t, nil)
	proposer := newTestAccount(t, st, 1000)

	beneficiary := testBeneficiary(0xbe)
	_, err := st.ProposeSpend(&tx.ProposeSpendTx{Value: 100, Beneficiary: beneficiary}, proposer.Index, false)
	require.NoError(t, err)

	_, err = st.Update()
	require.NoError(t, err)
	_, err = st.save()
	require.NoError(t, err)

	reloaded := newState(st.db, st.logger, st.params, st.authority)
	require.NoError(t, reloaded.load())
	assert.Equal(t, uint64(1), reloaded.ProposalCount())
	assert.Equal(t, st.header.AccountIdx, reloaded.header.AccountIdx)

	p, err := reloaded.getProposal(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), p.Value)
	assert.Equal(t, beneficiary, p.Beneficiary)
	assert.Equal(t, uint64(5), p.Bond)

	acnt, err := reloaded.FindAccount(proposer.AddrBytes())
	require.NoError(t, err)
	require.NotNil(t, acnt)
	assert.Equal(t, uint64(995), acnt.Free)
	assert.Equal(t, uint64(5), acnt.Reserved)
	assert.Equal(t, uint64(1), acnt.Nonce)
}

func TestVerifyTx(t *testing.T) {
	st := newTestState(t, nil)
	st.SetChainId("test-chain-verify")

	priv := ed25519.GenPrivKey()
	a := &Account{PubKey: priv.PubKey().Bytes(), Free: 10}
	require.NoError(t, st.AddAccount(a))

	sign := func(nonce uint64) *tx.TreasuryTx {
		btx := &tx.TreasuryTx{
			Version: tx.TxVersion1,
			Type:    tx.TxTypeApproveProposal,
			Nonce:   nonce,
			Caller:  a.Index,
			Tx:      &tx.ApproveProposalTx{Proposal: 0},
		}
		dat, err := btx.SigData([]byte("test-chain-verify"))
		require.NoError(t, err)
		sig, err := priv.Sign(dat)
		require.NoError(t, err)
		btx.Sig = [][]byte{sig}
		return btx
	}

	succ, err := st.Verify(sign(0), false)
	require.NoError(t, err)
	assert.True(t, succ)

	_, err = st.Verify(sign(5), false)
	assert.ErrorIs(t, err, ErrTxNonceInvalid)
	succ, err = st.Verify(sign(5), true)
	require.NoError(t, err)
	assert.True(t, succ)

	bad := sign(0)
	bad.Sig = [][]byte{make([]byte, 64)}
	_, err = st.Verify(bad, false)
	assert.ErrorIs(t, err, ErrTxSigInvalid)

	unknown := sign(0)
	unknown.Caller = a.Index + 100
	_, err = st.Verify(unknown, false)
	assert.ErrorIs(t, err, ErrAccountNoexists)
}

func TestModuleAddresses(t *testing.T) {
	assert.Len(t, TreasuryAddress(), 20)
	assert.Len(t, BountyAddress(0), 20)
	assert.NotEqual(t, BountyAddress(0), BountyAddress(1))

	// module accounts carry no key and never verify
	st := newTestState(t, nil)
	fundTreasury(t, st, 10)
	pot, err := st.FindAccount(TreasuryAddress())
	require.NoError(t, err)
	require.NotNil(t, pot)
	assert.False(t, pot.Verify([]byte("msg"), [][]byte{make([]byte, 64)}))
}
