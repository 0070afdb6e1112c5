package handler

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/mossline/treasury-app/state"
	"github.com/mossline/treasury-app/tx"
)

// TxHandler runs one tx family against a working state. NewContext
// resets per-block bookkeeping; Prepare runs during block building,
// Process during block verification and finalization.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ResponseCheckTx, err error)
	NewContext(ctx context.Context)
	Prepare(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error)
	Process(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error)
}
