package handler

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/mossline/treasury-app/state"
	"github.com/mossline/treasury-app/tx"
)

// SpendTxHandler covers the spend proposal lifecycle: propose, reject,
// approve.
type SpendTxHandler struct {
	logger cmtlog.Logger

	callerSet map[uint64]bool
}

func NewSpendTxHandler(logger cmtlog.Logger) (h *SpendTxHandler) {
	logger = logger.With("module", "spendTx")
	h = &SpendTxHandler{
		logger:    logger,
		callerSet: make(map[uint64]bool),
	}
	return
}

func (h *SpendTxHandler) apply(st *state.State, btx *tx.TreasuryTx, checkOnly bool) (events []abcitypes.Event, err error) {
	switch t := btx.Tx.(type) {
	case *tx.ProposeSpendTx:
		return st.ProposeSpend(t, btx.Caller, checkOnly)
	case *tx.RejectProposalTx:
		return st.RejectProposal(t, btx.Caller, checkOnly)
	case *tx.ApproveProposalTx:
		return st.ApproveProposal(t, btx.Caller, checkOnly)
	}
	return nil, tx.ErrUnmatchedTxType
}

func (h *SpendTxHandler) Check(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	_, err1 := h.apply(st, btx, true)
	if err1 != nil {
		h.logger.Info("CheckTx spend tx fail", "type", btx.Type, "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *SpendTxHandler) NewContext(ctx context.Context) {
	h.callerSet = make(map[uint64]bool)
}

func (h *SpendTxHandler) handle(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
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

func (h *SpendTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *SpendTxHandler) Process(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
