package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mossline/treasury-app/tx"
)

type proposeSpendArguments struct {
	txCommonArguments
	Value       uint64
	Beneficiary string
}

var proposeSpendArgs proposeSpendArguments

var proposeSpendCmd = &cobra.Command{
	Use:   "propose-spend",
	Short: "",
	Long:  ``,
	Run:   proposeSpendRun,
}

func init() {
	txFlags(proposeSpendCmd, &proposeSpendArgs.txCommonArguments)
	proposeSpendCmd.Flags().Uint64VarP(&proposeSpendArgs.Value, "value", "v", 0, "amount to spend from the pot")
	proposeSpendCmd.Flags().StringVarP(&proposeSpendArgs.Beneficiary, "beneficiary", "b", "", "beneficiary address")
}

func proposeSpendRun(cmd *cobra.Command, args []string) {
	beneficiary := common.FromHex(proposeSpendArgs.Beneficiary)
	if len(beneficiary) != common.AddressLength {
		fmt.Printf("invalid beneficiary:%v\n", proposeSpendArgs.Beneficiary)
		return
	}
	sendTx(proposeSpendArgs.txCommonArguments, tx.TxTypeProposeSpend, &tx.ProposeSpendTx{
		Value:       proposeSpendArgs.Value,
		Beneficiary: beneficiary,
	})
}

type rejectProposalArguments struct {
	txCommonArguments
	Proposal uint64
}

var rejectProposalArgs rejectProposalArguments

var rejectProposalCmd = &cobra.Command{
	Use:   "reject-proposal",
	Short: "",
	Long:  ``,
	Run:   rejectProposalRun,
}

func init() {
	txFlags(rejectProposalCmd, &rejectProposalArgs.txCommonArguments)
	rejectProposalCmd.Flags().Uint64VarP(&rejectProposalArgs.Proposal, "proposal", "p", 0, "proposal index")
}

func rejectProposalRun(cmd *cobra.Command, args []string) {
	sendTx(rejectProposalArgs.txCommonArguments, tx.TxTypeRejectProposal, &tx.RejectProposalTx{
		Proposal: rejectProposalArgs.Proposal,
	})
}

type approveProposalArguments struct {
	txCommonArguments
	Proposal uint64
}

var approveProposalArgs approveProposalArguments

var approveProposalCmd = &cobra.Command{
	Use:   "approve-proposal",
	Short: "",
	Long:  ``,
	Run:   approveProposalRun,
}

func init() {
	txFlags(approveProposalCmd, &approveProposalArgs.txCommonArguments)
	approveProposalCmd.Flags().Uint64VarP(&approveProposalArgs.Proposal, "proposal", "p", 0, "proposal index")
}

func approveProposalRun(cmd *cobra.Command, args []string) {
	sendTx(approveProposalArgs.txCommonArguments, tx.TxTypeApproveProposal, &tx.ApproveProposalTx{
		Proposal: approveProposalArgs.Proposal,
	})
}

type proposalArguments struct {
	Url      string
	Proposal uint64
}

var proposalArgs proposalArguments

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "",
	Long:  ``,
	Run:   proposalRun,
}

func init() {
	urlFlag(proposalCmd, &proposalArgs.Url)
	proposalCmd.Flags().Uint64VarP(&proposalArgs.Proposal, "proposal", "p", 0, "proposal index")
}

func proposalRun(cmd *cobra.Command, args []string) {
	queryByIndex(proposalArgs.Url, "/proposals/", proposalArgs.Proposal)
}

func queryByIndex(url string, path string, index uint64) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		fmt.Printf("new client err:%v\n", err)
		return
	}
	s := fmt.Sprintf("0%x", index)
	if len(s)&1 == 1 {
		s = s[1:]
	}
	dat, _ := hex.DecodeString(s)
	res, err := cli.ABCIQuery(context.Background(), path, dat)
	if err != nil {
		fmt.Printf("request err:%v\n", err)
		return
	}
	if res.Response.Code != 0 {
		fmt.Printf("%#v\n", res)
		return
	}
	fmt.Println(string(res.Response.Value))
}
