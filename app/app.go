package app

import (
	"context"
	"fmt"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mossline/treasury-app/config"
	"github.com/mossline/treasury-app/state"
	"github.com/mossline/treasury-app/tx"
	"github.com/mossline/treasury-app/tx/handler"
	"github.com/mossline/treasury-app/types"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &TreasuryApp{}

type TreasuryApp struct {
	cfg     *config.TreasuryAppConfig
	logger  cmtlog.Logger
	params  config.TreasuryParams
	genesis *types.TreasuryGenesis

	db       *state.StateDB
	lastBlk  finalizeBlock
	txHdlrs  map[tx.TreasuryTxType]handler.TxHandler
	queriers map[string]Querier

	st *state.State
}

func hexAddrs(in []string) [][]byte {
	out := make([][]byte, 0, len(in))
	for _, s := range in {
		out = append(out, common.FromHex(s))
	}
	return out
}

func NewTreasuryApp(cfg *config.TreasuryAppConfig, gen *types.TreasuryGenesis, logger cmtlog.Logger) (app *TreasuryApp, err error) {
	logger = logger.With("module", "app")

	params := *cfg.Treasury
	if gen.Params != nil {
		params = *gen.Params
	}
	if err = params.Validate(); err != nil {
		return nil, err
	}
	authority := state.NewAuthoritySet(hexAddrs(gen.Approvers), hexAddrs(gen.Rejectors), hexAddrs(gen.Tippers))

	dir := cfg.Home + "/data"
	db, err := state.NewStateDB(dir, logger, params, authority)
	if err != nil {
		return nil, err
	}

	app = &TreasuryApp{
		cfg:      cfg,
		logger:   logger,
		params:   params,
		genesis:  gen,
		db:       db,
		txHdlrs:  make(map[tx.TreasuryTxType]handler.TxHandler),
		queriers: make(map[string]Querier),
	}
	app.registerTxHandler()
	app.registerQuerier()
	return
}

func (app *TreasuryApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *TreasuryApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("treasury app stopped")
}

func (app *TreasuryApp) DB() *state.StateDB {
	return app.db
}

func (app *TreasuryApp) registerTxHandler() {
	spend := handler.NewSpendTxHandler(app.logger)
	tip := handler.NewTipTxHandler(app.logger)
	bounty := handler.NewBountyTxHandler(app.logger)
	app.txHdlrs = map[tx.TreasuryTxType]handler.TxHandler{
		tx.TxTypeProposeSpend:    spend,
		tx.TxTypeRejectProposal:  spend,
		tx.TxTypeApproveProposal: spend,

		tx.TxTypeReportAwesome: tip,
		tx.TxTypeRetractTip:    tip,
		tx.TxTypeTipNew:        tip,
		tx.TxTypeTip:           tip,
		tx.TxTypeCloseTip:      tip,

		tx.TxTypeProposeBounty:            bounty,
		tx.TxTypeProposeSubBounty:         bounty,
		tx.TxTypeRejectBounty:             bounty,
		tx.TxTypeApproveBounty:            bounty,
		tx.TxTypeAwardBounty:              bounty,
		tx.TxTypeClaimBounty:              bounty,
		tx.TxTypeCancelBounty:             bounty,
		tx.TxTypeExtendBountyExpiry:       bounty,
		tx.TxTypeUpdateBountyValueMinimum: bounty,
	}
}

func (app *TreasuryApp) registerQuerier() {
	app.queriers["/accounts/"] = NewAccountQuerier(app.db, app.logger)
	app.queriers["/pot/"] = NewPotQuerier(app.db, app.logger)
	app.queriers["/proposals/"] = NewProposalQuerier(app.db, app.logger)
	app.queriers["/tips/"] = NewTipQuerier(app.db, app.logger)
	app.queriers["/bounties/"] = NewBountyQuerier(app.db, app.logger)
	app.queriers["/validators/"] = NewValidatorQuerier(app.db, app.logger)
}

func (app *TreasuryApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	if len(chain.Validators) > state.MaxValidators {
		return nil, fmt.Errorf("validator set exceeds %v", state.MaxValidators)
	}
	for _, v := range chain.Validators {
		var acnt state.Account
		acnt.SetPubKey(v.PubKey.GetEd25519())
		err = st.AddAccount(&acnt)
		if err != nil {
			app.logger.Error("InitChain add account fail", "err", err)
			return nil, err
		}
	}
	// the pot account starts at its retention floor so it always
	// survives settlement
	if err = st.Mint(state.TreasuryAddress(), app.params.MinimumRetention); err != nil {
		app.logger.Error("InitChain fund treasury fail", "err", err)
		return nil, err
	}
	for _, b := range app.genesis.Balances {
		if err = st.Mint(common.FromHex(b.Address), b.Amount); err != nil {
			app.logger.Error("InitChain fund balance fail", "address", b.Address, "err", err)
			return nil, err
		}
	}
	st.SetBountyValueMinimum(app.params.BountyValueMinimum)
	st.SetValidators(chain.Validators)
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *TreasuryApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *TreasuryApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *TreasuryApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{}, nil
}

func (app *TreasuryApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return nil, nil
}

func (app *TreasuryApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return nil, nil
}

func (app *TreasuryApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return nil, nil
}

func (app *TreasuryApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return nil, nil
}
