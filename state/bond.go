package state

import (
	"math/big"

	"github.com/mossline/treasury-app/config"
)

// permillOf applies a parts-per-million fraction without overflowing
// on large values.
func permillOf(value, frac uint64) uint64 {
	v := new(big.Int).SetUint64(value)
	v.Mul(v, new(big.Int).SetUint64(frac))
	v.Div(v, big.NewInt(config.PermillDenom))
	return v.Uint64()
}

// percentOf applies a whole-percent rate.
func percentOf(value, pct uint64) uint64 {
	v := new(big.Int).SetUint64(value)
	v.Mul(v, new(big.Int).SetUint64(pct))
	v.Div(v, big.NewInt(100))
	return v.Uint64()
}

// ProposalBond is the deposit held from a spend proposer: the bond
// fraction of the requested value, floored at the configured minimum.
func (s *State) ProposalBond(value uint64) uint64 {
	bond := permillOf(value, s.params.ProposalBondFraction)
	if bond < s.params.ProposalBondMinimum {
		bond = s.params.ProposalBondMinimum
	}
	return bond
}

// TipReportDeposit is the deposit held from a tip finder, scaling with
// the reason length.
func (s *State) TipReportDeposit(reasonLen int) uint64 {
	return s.params.TipReportDeposit + s.params.DataDepositPerByte*uint64(reasonLen)
}

// BountyBond is the deposit held from a bounty proposer, scaling with
// the description length.
func (s *State) BountyBond(descLen int) uint64 {
	return s.params.BountyDepositBase + s.params.DataDepositPerByte*uint64(descLen)
}
