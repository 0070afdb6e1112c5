package tx

import (
	"errors"
)

type TreasuryTxType uint8

const (
	TxTypeUnknown TreasuryTxType = 0

	TxTypeProposeSpend    TreasuryTxType = 1
	TxTypeRejectProposal  TreasuryTxType = 2
	TxTypeApproveProposal TreasuryTxType = 3

	TxTypeReportAwesome TreasuryTxType = 4
	TxTypeRetractTip    TreasuryTxType = 5
	TxTypeTipNew        TreasuryTxType = 6
	TxTypeTip           TreasuryTxType = 7
	TxTypeCloseTip      TreasuryTxType = 8

	TxTypeProposeBounty            TreasuryTxType = 9
	TxTypeProposeSubBounty         TreasuryTxType = 10
	TxTypeRejectBounty             TreasuryTxType = 11
	TxTypeApproveBounty            TreasuryTxType = 12
	TxTypeAwardBounty              TreasuryTxType = 13
	TxTypeClaimBounty              TreasuryTxType = 14
	TxTypeCancelBounty             TreasuryTxType = 15
	TxTypeExtendBountyExpiry       TreasuryTxType = 16
	TxTypeUpdateBountyValueMinimum TreasuryTxType = 17
)

const (
	TxVersion0 uint8 = 0
	TxVersion1 uint8 = 1
)

var (
	ErrInvalidTx         = errors.New("invalid tx")
	ErrUnsupportedTxType = errors.New("unsupported tx type")
	ErrUnmatchedTxType   = errors.New("unmatched tx type")

	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
)
