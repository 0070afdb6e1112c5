package state

import (
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mossline/treasury-app/config"
	"github.com/mossline/treasury-app/types"
)

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, logger cmtlog.Logger, params config.TreasuryParams, authority Authority) (db *StateDB, err error) {
	logger = logger.With("module", "treasurydb")
	ldb, err := dbm.NewDB("treasury", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	tdb := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, logger, params, authority)
	err = st.load()
	if err != nil {
		logger.Error("from treasurydb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		db:     tdb,
		state:  st,
	}
	return
}

func (db *StateDB) Close() (err error) {
	err = db.db.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

func (db *StateDB) GetAccountByIndex(idx uint64) (acnt *Account, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	acnt, err = db.state.GetAccount(idx)
	if err != nil {
		return
	}
	if acnt != nil {
		acnt = acnt.Clone()
	}
	height = db.state.header.Height

	return
}

func (db *StateDB) GetAccountByAddress(addr []byte) (acnt *Account, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	acnt, err = db.state.FindAccount(addr)
	if err != nil {
		return
	}
	if acnt != nil {
		acnt = acnt.Clone()
	}
	height = db.state.header.Height

	return
}

func (db *StateDB) Pot() (pot uint64, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	pot, err = db.state.Pot()
	height = db.state.header.Height
	return
}

func (db *StateDB) GetProposal(idx uint64) (p *types.Proposal, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	p, err = db.state.getProposal(idx)
	height = db.state.header.Height
	return
}

func (db *StateDB) GetTip(hash common.Hash) (t *types.OpenTip, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	t, err = db.state.getTip(hash)
	height = db.state.header.Height
	return
}

func (db *StateDB) GetBounty(idx uint64) (b *types.Bounty, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	b, err = db.state.getBounty(idx)
	height = db.state.header.Height
	return
}

func (db *StateDB) ValidatorAccounts() (acnts []*Account, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	acnts, height, err = db.state.ValidatorAccounts()
	for i, a := range acnts {
		acnts[i] = a.Clone()
	}
	return
}
