package app

import (
	"context"
	"encoding/json"
	"strings"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mossline/treasury-app/state"
)

func (app *TreasuryApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = 404
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

func beUint(data []byte) uint64 {
	var idx uint64
	for _, v := range data {
		idx <<= 8
		idx |= uint64(v)
	}
	return idx
}

type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var a *state.Account
	var height uint64
	if len(req.Data) == common.AddressLength {
		a, height, _ = q.db.GetAccountByAddress(req.Data)
	} else if len(req.Data) <= 8 {
		a, height, _ = q.db.GetAccountByIndex(beUint(req.Data))
	}
	if a != nil {
		res.Value, _ = json.Marshal(a)
		res.Height = int64(height)
	} else {
		res.Code = 1
	}
	return
}

type PotQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewPotQuerier(db *state.StateDB, logger cmtlog.Logger) (q *PotQuerier) {
	q = &PotQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *PotQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	pot, height, err := q.db.Pot()
	if err != nil {
		res.Code = 1
		return res, nil
	}
	res.Value, _ = json.Marshal(struct {
		Pot uint64 `json:"pot"`
	}{Pot: pot})
	res.Height = int64(height)
	return
}

type ProposalQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewProposalQuerier(db *state.StateDB, logger cmtlog.Logger) (q *ProposalQuerier) {
	q = &ProposalQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *ProposalQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	p, height, err := q.db.GetProposal(beUint(req.Data))
	if err != nil {
		res.Code = 1
		res.Log = err.Error()
		return res, nil
	}
	res.Value, _ = json.Marshal(p)
	res.Height = int64(height)
	return
}

type TipQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewTipQuerier(db *state.StateDB, logger cmtlog.Logger) (q *TipQuerier) {
	q = &TipQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *TipQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != common.HashLength {
		res.Code = 1
		res.Log = "tip query wants a 32 byte hash"
		return res, nil
	}
	t, height, err := q.db.GetTip(common.BytesToHash(req.Data))
	if err != nil {
		res.Code = 1
		res.Log = err.Error()
		return res, nil
	}
	res.Value, _ = json.Marshal(t)
	res.Height = int64(height)
	return
}

type BountyQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewBountyQuerier(db *state.StateDB, logger cmtlog.Logger) (q *BountyQuerier) {
	q = &BountyQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *BountyQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	b, height, err := q.db.GetBounty(beUint(req.Data))
	if err != nil {
		res.Code = 1
		res.Log = err.Error()
		return res, nil
	}
	res.Value, _ = json.Marshal(b)
	res.Height = int64(height)
	return
}

type ValidatorQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewValidatorQuerier(db *state.StateDB, logger cmtlog.Logger) (q *ValidatorQuerier) {
	q = &ValidatorQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *ValidatorQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	acnts, height, err := q.db.ValidatorAccounts()
	if err != nil {
		res.Code = 1
		res.Log = err.Error()
		return res, nil
	}
	res.Value, _ = json.Marshal(acnts)
	res.Height = int64(height)
	return
}
