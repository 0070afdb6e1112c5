package tx

import (
	"encoding/json"
)

// TreasuryTx is the signed envelope carried in block txs. Caller is the
// account index of the signer; Sig holds the ed25519 signature over the
// envelope with the signature slot replaced by the chain id.
type TreasuryTx struct {
	Version uint8          `json:"version"`
	Type    TreasuryTxType `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Caller  uint64         `json:"caller"`
	Tx      any            `json:"tx"`
	Sig     [][]byte       `json:"sig"`
}

type ProposeSpendTx struct {
	Value       uint64 `json:"value"`
	Beneficiary []byte `json:"beneficiary"`
}

type RejectProposalTx struct {
	Proposal uint64 `json:"proposal"`
}

type ApproveProposalTx struct {
	Proposal uint64 `json:"proposal"`
}

type ReportAwesomeTx struct {
	Reason []byte `json:"reason"`
	Who    []byte `json:"who"`
}

type RetractTipTx struct {
	Hash []byte `json:"hash"`
}

type TipNewTx struct {
	Reason []byte `json:"reason"`
	Who    []byte `json:"who"`
	Amount uint64 `json:"amount"`
}

type TipTx struct {
	Hash   []byte `json:"hash"`
	Amount uint64 `json:"amount"`
}

type CloseTipTx struct {
	Hash []byte `json:"hash"`
}

type ProposeBountyTx struct {
	Curator     []byte `json:"curator"`
	Value       uint64 `json:"value"`
	Fee         uint64 `json:"fee"`
	Description []byte `json:"description"`
}

type ProposeSubBountyTx struct {
	Parent      uint64 `json:"parent"`
	Curator     []byte `json:"curator"`
	Value       uint64 `json:"value"`
	Fee         uint64 `json:"fee"`
	Description []byte `json:"description"`
}

type RejectBountyTx struct {
	Bounty uint64 `json:"bounty"`
}

type ApproveBountyTx struct {
	Bounty uint64 `json:"bounty"`
}

type AwardBountyTx struct {
	Bounty      uint64 `json:"bounty"`
	Beneficiary []byte `json:"beneficiary"`
}

type ClaimBountyTx struct {
	Bounty uint64 `json:"bounty"`
}

type CancelBountyTx struct {
	Bounty uint64 `json:"bounty"`
}

type ExtendBountyExpiryTx struct {
	Bounty uint64 `json:"bounty"`
}

type UpdateBountyValueMinimumTx struct {
	Value uint64 `json:"value"`
}

type treasuryTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    TreasuryTxType `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Caller  uint64         `json:"caller"`
	Tx      Tx             `json:"tx"`
	Sig     [][]byte       `json:"sig"`
}

func (tx *TreasuryTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

func parseTreasuryTxType(dat []byte) TreasuryTxType {
	var tx struct {
		Type TreasuryTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return TxTypeUnknown
	}
	return tx.Type
}

func unmarshalTreasuryTx[Tx any](dat []byte) (btx *TreasuryTx, err error) {
	var txt treasuryTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != TxVersion1 {
		return nil, ErrUnsupportedTxVersion
	}
	btx = new(TreasuryTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Caller = txt.Caller
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalTreasuryTx(dat []byte) (btx *TreasuryTx, err error) {
	if len(dat) == 0 {
		return nil, ErrInvalidTx
	}
	tp := parseTreasuryTxType(dat)
	switch tp {
	case TxTypeProposeSpend:
		return unmarshalTreasuryTx[ProposeSpendTx](dat)
	case TxTypeRejectProposal:
		return unmarshalTreasuryTx[RejectProposalTx](dat)
	case TxTypeApproveProposal:
		return unmarshalTreasuryTx[ApproveProposalTx](dat)
	case TxTypeReportAwesome:
		return unmarshalTreasuryTx[ReportAwesomeTx](dat)
	case TxTypeRetractTip:
		return unmarshalTreasuryTx[RetractTipTx](dat)
	case TxTypeTipNew:
		return unmarshalTreasuryTx[TipNewTx](dat)
	case TxTypeTip:
		return unmarshalTreasuryTx[TipTx](dat)
	case TxTypeCloseTip:
		return unmarshalTreasuryTx[CloseTipTx](dat)
	case TxTypeProposeBounty:
		return unmarshalTreasuryTx[ProposeBountyTx](dat)
	case TxTypeProposeSubBounty:
		return unmarshalTreasuryTx[ProposeSubBountyTx](dat)
	case TxTypeRejectBounty:
		return unmarshalTreasuryTx[RejectBountyTx](dat)
	case TxTypeApproveBounty:
		return unmarshalTreasuryTx[ApproveBountyTx](dat)
	case TxTypeAwardBounty:
		return unmarshalTreasuryTx[AwardBountyTx](dat)
	case TxTypeClaimBounty:
		return unmarshalTreasuryTx[ClaimBountyTx](dat)
	case TxTypeCancelBounty:
		return unmarshalTreasuryTx[CancelBountyTx](dat)
	case TxTypeExtendBountyExpiry:
		return unmarshalTreasuryTx[ExtendBountyExpiryTx](dat)
	case TxTypeUpdateBountyValueMinimum:
		return unmarshalTreasuryTx[UpdateBountyValueMinimumTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalTreasuryTx(btx *TreasuryTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
