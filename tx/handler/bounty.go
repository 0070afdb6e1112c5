package handler

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/mossline/treasury-app/state"
	"github.com/mossline/treasury-app/tx"
)

// BountyTxHandler covers the bounty lifecycle, sub-bounties included.
type BountyTxHandler struct {
	logger cmtlog.Logger

	callerSet map[uint64]bool
}

func NewBountyTxHandler(logger cmtlog.Logger) (h *BountyTxHandler) {
	logger = logger.With("module", "bountyTx")
	h = &BountyTxHandler{
		logger:    logger,
		callerSet: make(map[uint64]bool),
	}
	return
}

func (h *BountyTxHandler) apply(st *state.State, btx *tx.TreasuryTx, checkOnly bool) (events []abcitypes.Event, err error) {
	switch t := btx.Tx.(type) {
	case *tx.ProposeBountyTx:
		return st.ProposeBounty(t, btx.Caller, checkOnly)
	case *tx.ProposeSubBountyTx:
		return st.ProposeSubBounty(t, btx.Caller, checkOnly)
	case *tx.RejectBountyTx:
		return st.RejectBounty(t, btx.Caller, checkOnly)
	case *tx.ApproveBountyTx:
		return st.ApproveBounty(t, btx.Caller, checkOnly)
	case *tx.AwardBountyTx:
		return st.AwardBounty(t, btx.Caller, checkOnly)
	case *tx.ClaimBountyTx:
		return st.ClaimBounty(t, btx.Caller, checkOnly)
	case *tx.CancelBountyTx:
		return st.CancelBounty(t, btx.Caller, checkOnly)
	case *tx.ExtendBountyExpiryTx:
		return st.ExtendBountyExpiry(t, btx.Caller, checkOnly)
	case *tx.UpdateBountyValueMinimumTx:
		return st.UpdateBountyValueMinimum(t, btx.Caller, checkOnly)
	}
	return nil, tx.ErrUnmatchedTxType
}

func (h *BountyTxHandler) Check(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	_, err1 := h.apply(st, btx, true)
	if err1 != nil {
		h.logger.Info("CheckTx bounty tx fail", "type", btx.Type, "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *BountyTxHandler) NewContext(ctx context.Context) {
	h.callerSet = make(map[uint64]bool)
}

func (h *BountyTxHandler) handle(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	if _, ok := h.callerSet[btx.Caller]; ok {
		return nil, state.ErrOneActionInOneBlock
	}
	events, err := h.apply(st, btx, false)
	if err != nil {
		return nil, err
	}
	h.callerSet[btx.Caller] = true
	res = &abcitypes.ExecTxResult{Events: events}
	return
}

func (h *BountyTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *BountyTxHandler) Process(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
