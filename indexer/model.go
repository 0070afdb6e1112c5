package indexer

// sqlite models

const (
	ProposalStatusPending uint64 = iota
	ProposalStatusAwarded
	ProposalStatusRejected
)

const (
	TipStatusOpen uint64 = iota
	TipStatusClosing
	TipStatusClosed
	TipStatusRetracted
)

const (
	BountyStatusProposed uint64 = iota
	BountyStatusApproved
	BountyStatusActive
	BountyStatusPendingPayout
	BountyStatusClaimed
	BountyStatusCanceled
	BountyStatusRejected
)

type Height struct {
	Id     uint64 `gorm:"primaryKey" json:"id"`
	Height uint64 `json:"height"`
}

// Proposal keeps its own row id; chain indices start at zero, which
// gorm would treat as an unsaved record if used as the primary key.
type Proposal struct {
	Id              uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	Idx             uint64 `gorm:"unique_index" json:"idx"`
	Proposer        string `json:"proposer"`
	Value           uint64 `json:"value"`
	Beneficiary     string `json:"beneficiary"`
	Bond            uint64 `json:"bond"`
	Status          uint64 `json:"status"`
	Slashed         uint64 `json:"slashed"`
	ProposeHeight   uint64 `json:"propose_height"`
	SettleHeight    uint64 `json:"settle_height"`
	CreateTimestamp int64  `json:"create_timestamp"`
}

type Tip struct {
	Hash            string `gorm:"primaryKey" json:"hash"`
	Reason          string `json:"reason"`
	Who             string `json:"who"`
	Finder          string `json:"finder"`
	Status          uint64 `json:"status"`
	ClosesAt        uint64 `json:"closes_at"`
	Payout          uint64 `json:"payout"`
	OpenHeight      uint64 `json:"open_height"`
	CloseHeight     uint64 `json:"close_height"`
	CreateTimestamp int64  `json:"create_timestamp"`
}

type Bounty struct {
	Id              uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	Idx             uint64 `gorm:"unique_index" json:"idx"`
	Proposer        string `json:"proposer"`
	Curator         string `json:"curator"`
	Value           uint64 `json:"value"`
	Fee             uint64 `json:"fee"`
	Parent          uint64 `json:"parent"`
	Sub             bool   `json:"sub"`
	Status          uint64 `json:"status"`
	Expires         uint64 `json:"expires"`
	Beneficiary     string `json:"beneficiary"`
	UnlockAt        uint64 `json:"unlock_at"`
	Payout          uint64 `json:"payout"`
	Slashed         uint64 `json:"slashed"`
	Refunded        uint64 `json:"refunded"`
	ProposeHeight   uint64 `json:"propose_height"`
	SettleHeight    uint64 `json:"settle_height"`
	CreateTimestamp int64  `json:"create_timestamp"`
}

// Settlement records the outcome of one spend period.
type Settlement struct {
	Height    uint64 `gorm:"primaryKey" json:"height"`
	Budget    uint64 `json:"budget"`
	Burnt     uint64 `json:"burnt"`
	Remaining uint64 `json:"remaining"`
}
