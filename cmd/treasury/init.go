package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/spf13/cobra"

	"github.com/mossline/treasury-app/config"
	"github.com/mossline/treasury-app/types"
)

const defaultPower = 100

type printInfo struct {
	Moniker    string          `json:"moniker" yaml:"moniker"`
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, genesis, and application configuration files",
	Long:  `Initialize validator's and node's configuration files.`,
	Args:  cobra.ExactArgs(0),
	RunE:  initRun,
}

func init() {
	initCmd.Flags().BoolP(types.FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(types.FlagChainID, types.DefaultChainID, "genesis file chain-id")
	initCmd.Flags().String(types.FlagHome, "", "config")
	initCmd.Flags().Uint64("balance", 0, "initial free balance of the validator account")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(types.FlagHome)
	chainID, _ := cmd.Flags().GetString(types.FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(types.FlagOverwrite)
	balance, _ := cmd.Flags().GetUint64("balance")

	if chainID == "" {
		chainID = types.DefaultChainID
	}
	appConfig := config.DefaultConfig(home)

	nodeID, pk, err := config.InitializeNodeValidatorFiles(appConfig, nil)
	if err != nil {
		return err
	}
	vals := []cmttypes.GenesisValidator{{
		Address: pk.Address(),
		PubKey:  pk,
		Power:   defaultPower,
	}}

	genFile := appConfig.GenesisFile()
	if _, err := os.Stat(genFile); err == nil && !overwrite {
		return fmt.Errorf("genesis file %v exists, use -o to overwrite", genFile)
	}

	// the local validator bootstraps the authority sets
	valAddr := fmt.Sprintf("%x", pk.Address().Bytes())
	appState := &types.TreasuryGenesis{
		Params:    appConfig.App.Treasury,
		Approvers: []string{valAddr},
		Rejectors: []string{valAddr},
		Tippers:   []string{valAddr},
	}
	if balance > 0 {
		appState.Balances = []types.GenesisBalance{{Address: valAddr, Amount: balance}}
	}

	doc, err := types.MakeGenesisDoc(chainID, vals, appState)
	if err != nil {
		return err
	}
	if err = doc.SaveAs(genFile); err != nil {
		return fmt.Errorf("failed to export genesis file %v", err)
	}
	config.WriteConfigFile(filepath.Join(appConfig.RootDir, "config", "config.toml"), appConfig)
	return displayInfo(printInfo{ChainID: chainID, NodeID: nodeID, AppMessage: doc.AppState})
}
