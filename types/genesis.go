package types

import (
	"encoding/json"
	"fmt"
	"time"

	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mossline/treasury-app/config"
)

// GenesisBalance seeds a free balance for an externally owned account.
type GenesisBalance struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// TreasuryGenesis is the app_state carried inside the comet genesis doc.
// Approvers, rejectors and tippers are hex account addresses; the three
// sets govern who may approve spends, reject spends and declare tips.
type TreasuryGenesis struct {
	Params    *config.TreasuryParams `json:"params,omitempty"`
	Approvers []string               `json:"approvers"`
	Rejectors []string               `json:"rejectors"`
	Tippers   []string               `json:"tippers"`
	Balances  []GenesisBalance       `json:"balances"`
}

func (g *TreasuryGenesis) Validate() error {
	if g.Params != nil {
		if err := g.Params.Validate(); err != nil {
			return err
		}
	}
	seen := make(map[string]struct{})
	for _, groups := range [][]string{g.Approvers, g.Rejectors, g.Tippers} {
		for _, addr := range groups {
			if len(common.FromHex(addr)) != common.AddressLength {
				return fmt.Errorf("bad authority address %s", addr)
			}
		}
	}
	for _, b := range g.Balances {
		if len(common.FromHex(b.Address)) != common.AddressLength {
			return fmt.Errorf("bad balance address %s", b.Address)
		}
		if _, ok := seen[b.Address]; ok {
			return fmt.Errorf("duplicate balance address %s", b.Address)
		}
		seen[b.Address] = struct{}{}
	}
	return nil
}

func TreasuryGenesisFromBytes(bz []byte) (*TreasuryGenesis, error) {
	g := &TreasuryGenesis{}
	if len(bz) > 0 {
		if err := json.Unmarshal(bz, g); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// MakeGenesisDoc assembles a comet genesis doc around the treasury app state.
func MakeGenesisDoc(chainID string, vals []cmttypes.GenesisValidator, appState *TreasuryGenesis) (*cmttypes.GenesisDoc, error) {
	if err := appState.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(appState)
	if err != nil {
		return nil, err
	}
	doc := &cmttypes.GenesisDoc{
		ChainID:         chainID,
		GenesisTime:     time.Now(),
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		Validators:      vals,
		AppState:        raw,
	}
	return doc, doc.ValidateAndComplete()
}
