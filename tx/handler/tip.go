package handler

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/mossline/treasury-app/state"
	"github.com/mossline/treasury-app/tx"
)

// TipTxHandler covers the crowd-tip lifecycle: report, retract, open,
// declare, close.
type TipTxHandler struct {
	logger cmtlog.Logger

	callerSet map[uint64]bool
}

func NewTipTxHandler(logger cmtlog.Logger) (h *TipTxHandler) {
	logger = logger.With("module", "tipTx")
	h = &TipTxHandler{
		logger:    logger,
		callerSet: make(map[uint64]bool),
	}
	return
}

func (h *TipTxHandler) apply(st *state.State, btx *tx.TreasuryTx, checkOnly bool) (events []abcitypes.Event, err error) {
	switch t := btx.Tx.(type) {
	case *tx.ReportAwesomeTx:
		return st.ReportAwesome(t, btx.Caller, checkOnly)
	case *tx.RetractTipTx:
		return st.RetractTip(t, btx.Caller, checkOnly)
	case *tx.TipNewTx:
		return st.TipNew(t, btx.Caller, checkOnly)
	case *tx.TipTx:
		return st.Tip(t, btx.Caller, checkOnly)
	case *tx.CloseTipTx:
		return st.CloseTip(t, btx.Caller, checkOnly)
	}
	return nil, tx.ErrUnmatchedTxType
}

func (h *TipTxHandler) Check(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	_, err1 := h.apply(st, btx, true)
	if err1 != nil {
		h.logger.Info("CheckTx tip tx fail", "type", btx.Type, "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *TipTxHandler) NewContext(ctx context.Context) {
	h.callerSet = make(map[uint64]bool)
}

func (h *TipTxHandler) handle(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
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

func (h *TipTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *TipTxHandler) Process(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
