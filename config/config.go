package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
)

const (
	// PermillDenom is the denominator for parts-per-million fractions.
	PermillDenom = 1_000_000

	// MaxSubBountyDepthUnbounded is reserved and rejected at validation:
	// the depth walk must always be bounded by configuration.
	MaxSubBountyDepthUnbounded = 255
)

// TreasuryParams are the protocol constants of the treasury state machine.
// They are consensus-critical: every node must run with identical values.
type TreasuryParams struct {
	// ProposalBondFraction of a proposal's value reserved as bond, in
	// parts per million. ProposalBondMinimum is the floor.
	ProposalBondFraction uint64 `mapstructure:"proposal_bond_fraction" json:"proposalBondFraction"`
	ProposalBondMinimum  uint64 `mapstructure:"proposal_bond_minimum" json:"proposalBondMinimum"`

	// SpendPeriod is the settlement interval in blocks.
	SpendPeriod uint64 `mapstructure:"spend_period" json:"spendPeriod"`
	// BurnFraction of the leftover budget burnt each settlement, in
	// parts per million.
	BurnFraction uint64 `mapstructure:"burn_fraction" json:"burnFraction"`

	TipCountdown       uint64 `mapstructure:"tip_countdown" json:"tipCountdown"`
	TipFindersFee      uint64 `mapstructure:"tip_finders_fee" json:"tipFindersFee"` // percent
	TipReportDeposit   uint64 `mapstructure:"tip_report_deposit" json:"tipReportDeposit"`
	DataDepositPerByte uint64 `mapstructure:"data_deposit_per_byte" json:"dataDepositPerByte"`

	BountyDepositBase uint64 `mapstructure:"bounty_deposit_base" json:"bountyDepositBase"`
	BountyPayoutDelay uint64 `mapstructure:"bounty_payout_delay" json:"bountyPayoutDelay"`
	BountyDuration    uint64 `mapstructure:"bounty_duration" json:"bountyDuration"`
	// BountyValueMinimum seeds the stored floor; update_bounty_value_minimum
	// overrides it afterwards.
	BountyValueMinimum uint64 `mapstructure:"bounty_value_minimum" json:"bountyValueMinimum"`
	MaxSubBountyDepth  uint8  `mapstructure:"max_sub_bounty_depth" json:"maxSubBountyDepth"`

	MaximumReasonLength uint64 `mapstructure:"maximum_reason_length" json:"maximumReasonLength"`

	// MinimumRetention stays in the treasury account and is excluded from
	// the pot, so the account never drops below the existence floor.
	MinimumRetention uint64 `mapstructure:"minimum_retention" json:"minimumRetention"`
}

func DefaultTreasuryParams() *TreasuryParams {
	return &TreasuryParams{
		ProposalBondFraction: 50_000, // 5%
		ProposalBondMinimum:  1,
		SpendPeriod:          2,
		BurnFraction:         500_000, // 50%
		TipCountdown:         1,
		TipFindersFee:        20,
		TipReportDeposit:     1,
		DataDepositPerByte:   1,
		BountyDepositBase:    80,
		BountyPayoutDelay:    3,
		BountyDuration:       20,
		BountyValueMinimum:   1,
		MaxSubBountyDepth:    3,
		MaximumReasonLength:  16384,
		MinimumRetention:     1,
	}
}

func (p *TreasuryParams) Validate() error {
	if p.SpendPeriod == 0 {
		return fmt.Errorf("spend_period must be positive")
	}
	if p.ProposalBondFraction > PermillDenom {
		return fmt.Errorf("proposal_bond_fraction %d exceeds %d", p.ProposalBondFraction, PermillDenom)
	}
	if p.BurnFraction > PermillDenom {
		return fmt.Errorf("burn_fraction %d exceeds %d", p.BurnFraction, PermillDenom)
	}
	if p.TipFindersFee > 100 {
		return fmt.Errorf("tip_finders_fee %d exceeds 100 percent", p.TipFindersFee)
	}
	if p.MaxSubBountyDepth == MaxSubBountyDepthUnbounded {
		return fmt.Errorf("max_sub_bounty_depth %d is reserved", p.MaxSubBountyDepth)
	}
	return nil
}

type TreasuryAppConfig struct {
	Home     string          `mapstructure:"-"`
	ApiAddr  string          `mapstructure:"api_addr"`
	Treasury *TreasuryParams `mapstructure:"treasury"`
}

func NewTreasuryAppConfig(home string) *TreasuryAppConfig {
	return &TreasuryAppConfig{
		Home:     home,
		ApiAddr:  "127.0.0.1:8547",
		Treasury: DefaultTreasuryParams(),
	}
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *TreasuryAppConfig `mapstructure:"app"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.treasury")
	}
	cfg := &Config{
		DefaultCometConfig(),
		NewTreasuryAppConfig(home),
	}
	cfg.RootDir = home
	_ = os.MkdirAll(home+"/config", 0o755)
	return cfg
}

func InitializeNodeValidatorFiles(cfg *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(cfg.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := cfg.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := cfg.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pubKey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pubKey, nil
}

func DefaultCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 10
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
