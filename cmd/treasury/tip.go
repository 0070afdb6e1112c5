package main

import (
	"context"
	"fmt"

	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mossline/treasury-app/tx"
)

type reportAwesomeArguments struct {
	txCommonArguments
	Reason string
	Who    string
}

var reportAwesomeArgs reportAwesomeArguments

var reportAwesomeCmd = &cobra.Command{
	Use:   "report-awesome",
	Short: "",
	Long:  ``,
	Run:   reportAwesomeRun,
}

func init() {
	txFlags(reportAwesomeCmd, &reportAwesomeArgs.txCommonArguments)
	reportAwesomeCmd.Flags().StringVarP(&reportAwesomeArgs.Reason, "reason", "r", "", "reason for the tip")
	reportAwesomeCmd.Flags().StringVarP(&reportAwesomeArgs.Who, "who", "w", "", "address of the tip recipient")
}

func reportAwesomeRun(cmd *cobra.Command, args []string) {
	who := common.FromHex(reportAwesomeArgs.Who)
	if len(who) != common.AddressLength {
		fmt.Printf("invalid who:%v\n", reportAwesomeArgs.Who)
		return
	}
	sendTx(reportAwesomeArgs.txCommonArguments, tx.TxTypeReportAwesome, &tx.ReportAwesomeTx{
		Reason: []byte(reportAwesomeArgs.Reason),
		Who:    who,
	})
}

type retractTipArguments struct {
	txCommonArguments
	Hash string
}

var retractTipArgs retractTipArguments

var retractTipCmd = &cobra.Command{
	Use:   "retract-tip",
	Short: "",
	Long:  ``,
	Run:   retractTipRun,
}

func init() {
	txFlags(retractTipCmd, &retractTipArgs.txCommonArguments)
	retractTipCmd.Flags().StringVarP(&retractTipArgs.Hash, "hash", "t", "", "tip hash")
}

func retractTipRun(cmd *cobra.Command, args []string) {
	hash := common.FromHex(retractTipArgs.Hash)
	if len(hash) != common.HashLength {
		fmt.Printf("invalid hash:%v\n", retractTipArgs.Hash)
		return
	}
	sendTx(retractTipArgs.txCommonArguments, tx.TxTypeRetractTip, &tx.RetractTipTx{Hash: hash})
}

type tipNewArguments struct {
	txCommonArguments
	Reason string
	Who    string
	Amount uint64
}

var tipNewArgs tipNewArguments

var tipNewCmd = &cobra.Command{
	Use:   "tip-new",
	Short: "",
	Long:  ``,
	Run:   tipNewRun,
}

func init() {
	txFlags(tipNewCmd, &tipNewArgs.txCommonArguments)
	tipNewCmd.Flags().StringVarP(&tipNewArgs.Reason, "reason", "r", "", "reason for the tip")
	tipNewCmd.Flags().StringVarP(&tipNewArgs.Who, "who", "w", "", "address of the tip recipient")
	tipNewCmd.Flags().Uint64VarP(&tipNewArgs.Amount, "amount", "a", 0, "declared tip amount")
}

func tipNewRun(cmd *cobra.Command, args []string) {
	who := common.FromHex(tipNewArgs.Who)
	if len(who) != common.AddressLength {
		fmt.Printf("invalid who:%v\n", tipNewArgs.Who)
		return
	}
	sendTx(tipNewArgs.txCommonArguments, tx.TxTypeTipNew, &tx.TipNewTx{
		Reason: []byte(tipNewArgs.Reason),
		Who:    who,
		Amount: tipNewArgs.Amount,
	})
}

type tipArguments struct {
	txCommonArguments
	Hash   string
	Amount uint64
}

var tipArgs tipArguments

var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "",
	Long:  ``,
	Run:   tipRun,
}

func init() {
	txFlags(tipCmd, &tipArgs.txCommonArguments)
	tipCmd.Flags().StringVarP(&tipArgs.Hash, "hash", "t", "", "tip hash")
	tipCmd.Flags().Uint64VarP(&tipArgs.Amount, "amount", "a", 0, "declared tip amount")
}

func tipRun(cmd *cobra.Command, args []string) {
	hash := common.FromHex(tipArgs.Hash)
	if len(hash) != common.HashLength {
		fmt.Printf("invalid hash:%v\n", tipArgs.Hash)
		return
	}
	sendTx(tipArgs.txCommonArguments, tx.TxTypeTip, &tx.TipTx{
		Hash:   hash,
		Amount: tipArgs.Amount,
	})
}

type closeTipArguments struct {
	txCommonArguments
	Hash string
}

var closeTipArgs closeTipArguments

var closeTipCmd = &cobra.Command{
	Use:   "close-tip",
	Short: "",
	Long:  ``,
	Run:   closeTipRun,
}

func init() {
	txFlags(closeTipCmd, &closeTipArgs.txCommonArguments)
	closeTipCmd.Flags().StringVarP(&closeTipArgs.Hash, "hash", "t", "", "tip hash")
}

func closeTipRun(cmd *cobra.Command, args []string) {
	hash := common.FromHex(closeTipArgs.Hash)
	if len(hash) != common.HashLength {
		fmt.Printf("invalid hash:%v\n", closeTipArgs.Hash)
		return
	}
	sendTx(closeTipArgs.txCommonArguments, tx.TxTypeCloseTip, &tx.CloseTipTx{Hash: hash})
}

type tipQueryArguments struct {
	Url  string
	Hash string
}

var tipQueryArgs tipQueryArguments

var tipQueryCmd = &cobra.Command{
	Use:   "tip-show",
	Short: "",
	Long:  ``,
	Run:   tipQueryRun,
}

func init() {
	urlFlag(tipQueryCmd, &tipQueryArgs.Url)
	tipQueryCmd.Flags().StringVarP(&tipQueryArgs.Hash, "hash", "t", "", "tip hash")
}

func tipQueryRun(cmd *cobra.Command, args []string) {
	hash := common.FromHex(tipQueryArgs.Hash)
	if len(hash) != common.HashLength {
		fmt.Printf("invalid hash:%v\n", tipQueryArgs.Hash)
		return
	}
	cli, err := http.New(tipQueryArgs.Url, "/websocket")
	if err != nil {
		fmt.Printf("new client err:%v\n", err)
		return
	}
	res, err := cli.ABCIQuery(context.Background(), "/tips/", hash)
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
