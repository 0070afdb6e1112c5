package types

// Proposal is a pending spend awaiting board decision. Proposer and
// Beneficiary are raw account addresses.
type Proposal struct {
	Index       uint64 `json:"index"`
	Proposer    []byte `json:"proposer"`
	Value       uint64 `json:"value"`
	Beneficiary []byte `json:"beneficiary"`
	Bond        uint64 `json:"bond"`
}

// TipContribution is one tipper's declared amount inside an open tip.
type TipContribution struct {
	Tipper []byte `json:"tipper"`
	Amount uint64 `json:"amount"`
}

// OpenTip is a crowd-tip motion. Tips stays sorted by tipper address.
// ClosesAt is nil until the declaration threshold is reached.
type OpenTip struct {
	Reason     []byte            `json:"reason"`
	Who        []byte            `json:"who"`
	Finder     []byte            `json:"finder"`
	Deposit    uint64            `json:"deposit"`
	ClosesAt   *uint64           `json:"closesAt,omitempty"`
	Tips       []TipContribution `json:"tips"`
	FindersFee bool              `json:"findersFee"`
}

type BountyStatus uint8

const (
	BountyStatusProposed BountyStatus = iota
	BountyStatusApproved
	BountyStatusActive
	BountyStatusPendingPayout
)

func (s BountyStatus) String() string {
	switch s {
	case BountyStatusProposed:
		return "proposed"
	case BountyStatusApproved:
		return "approved"
	case BountyStatusActive:
		return "active"
	case BountyStatusPendingPayout:
		return "pending_payout"
	}
	return "unknown"
}

// Bounty carries the full lifecycle of a curated payout. Expires is
// meaningful while Active, Beneficiary and UnlockAt while PendingPayout.
// Parent is set for sub-bounties.
type Bounty struct {
	Index       uint64       `json:"index"`
	Proposer    []byte       `json:"proposer"`
	Curator     []byte       `json:"curator"`
	Value       uint64       `json:"value"`
	Fee         uint64       `json:"fee"`
	Bond        uint64       `json:"bond"`
	Status      BountyStatus `json:"status"`
	Expires     uint64       `json:"expires,omitempty"`
	Beneficiary []byte       `json:"beneficiary,omitempty"`
	UnlockAt    uint64       `json:"unlockAt,omitempty"`
	Parent      *uint64      `json:"parent,omitempty"`
}
