package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mossline/treasury-app/tx"
)

type proposeBountyArguments struct {
	txCommonArguments
	Curator     string
	Value       uint64
	Fee         uint64
	Description string
}

var proposeBountyArgs proposeBountyArguments

var proposeBountyCmd = &cobra.Command{
	Use:   "propose-bounty",
	Short: "",
	Long:  ``,
	Run:   proposeBountyRun,
}

func init() {
	txFlags(proposeBountyCmd, &proposeBountyArgs.txCommonArguments)
	proposeBountyCmd.Flags().StringVarP(&proposeBountyArgs.Curator, "curator", "c", "", "curator address")
	proposeBountyCmd.Flags().Uint64VarP(&proposeBountyArgs.Value, "value", "v", 0, "bounty value")
	proposeBountyCmd.Flags().Uint64VarP(&proposeBountyArgs.Fee, "fee", "f", 0, "curator fee")
	proposeBountyCmd.Flags().StringVarP(&proposeBountyArgs.Description, "description", "m", "", "bounty description")
}

func proposeBountyRun(cmd *cobra.Command, args []string) {
	curator := common.FromHex(proposeBountyArgs.Curator)
	if len(curator) != common.AddressLength {
		fmt.Printf("invalid curator:%v\n", proposeBountyArgs.Curator)
		return
	}
	sendTx(proposeBountyArgs.txCommonArguments, tx.TxTypeProposeBounty, &tx.ProposeBountyTx{
		Curator:     curator,
		Value:       proposeBountyArgs.Value,
		Fee:         proposeBountyArgs.Fee,
		Description: []byte(proposeBountyArgs.Description),
	})
}

type proposeSubBountyArguments struct {
	txCommonArguments
	Parent      uint64
	Curator     string
	Value       uint64
	Fee         uint64
	Description string
}

var proposeSubBountyArgs proposeSubBountyArguments

var proposeSubBountyCmd = &cobra.Command{
	Use:   "propose-sub-bounty",
	Short: "",
	Long:  ``,
	Run:   proposeSubBountyRun,
}

func init() {
	txFlags(proposeSubBountyCmd, &proposeSubBountyArgs.txCommonArguments)
	proposeSubBountyCmd.Flags().Uint64VarP(&proposeSubBountyArgs.Parent, "parent", "p", 0, "parent bounty index")
	proposeSubBountyCmd.Flags().StringVarP(&proposeSubBountyArgs.Curator, "curator", "c", "", "curator address")
	proposeSubBountyCmd.Flags().Uint64VarP(&proposeSubBountyArgs.Value, "value", "v", 0, "bounty value")
	proposeSubBountyCmd.Flags().Uint64VarP(&proposeSubBountyArgs.Fee, "fee", "f", 0, "curator fee")
	proposeSubBountyCmd.Flags().StringVarP(&proposeSubBountyArgs.Description, "description", "m", "", "bounty description")
}

func proposeSubBountyRun(cmd *cobra.Command, args []string) {
	curator := common.FromHex(proposeSubBountyArgs.Curator)
	if len(curator) != common.AddressLength {
		fmt.Printf("invalid curator:%v\n", proposeSubBountyArgs.Curator)
		return
	}
	sendTx(proposeSubBountyArgs.txCommonArguments, tx.TxTypeProposeSubBounty, &tx.ProposeSubBountyTx{
		Parent:      proposeSubBountyArgs.Parent,
		Curator:     curator,
		Value:       proposeSubBountyArgs.Value,
		Fee:         proposeSubBountyArgs.Fee,
		Description: []byte(proposeSubBountyArgs.Description),
	})
}

type bountyIndexArguments struct {
	txCommonArguments
	Bounty uint64
}

var rejectBountyArgs bountyIndexArguments

var rejectBountyCmd = &cobra.Command{
	Use:   "reject-bounty",
	Short: "",
	Long:  ``,
	Run:   rejectBountyRun,
}

func init() {
	txFlags(rejectBountyCmd, &rejectBountyArgs.txCommonArguments)
	rejectBountyCmd.Flags().Uint64VarP(&rejectBountyArgs.Bounty, "bounty", "b", 0, "bounty index")
}

func rejectBountyRun(cmd *cobra.Command, args []string) {
	sendTx(rejectBountyArgs.txCommonArguments, tx.TxTypeRejectBounty, &tx.RejectBountyTx{Bounty: rejectBountyArgs.Bounty})
}

var approveBountyArgs bountyIndexArguments

var approveBountyCmd = &cobra.Command{
	Use:   "approve-bounty",
	Short: "",
	Long:  ``,
	Run:   approveBountyRun,
}

func init() {
	txFlags(approveBountyCmd, &approveBountyArgs.txCommonArguments)
	approveBountyCmd.Flags().Uint64VarP(&approveBountyArgs.Bounty, "bounty", "b", 0, "bounty index")
}

func approveBountyRun(cmd *cobra.Command, args []string) {
	sendTx(approveBountyArgs.txCommonArguments, tx.TxTypeApproveBounty, &tx.ApproveBountyTx{Bounty: approveBountyArgs.Bounty})
}

type awardBountyArguments struct {
	txCommonArguments
	Bounty      uint64
	Beneficiary string
}

var awardBountyArgs awardBountyArguments

var awardBountyCmd = &cobra.Command{
	Use:   "award-bounty",
	Short: "",
	Long:  ``,
	Run:   awardBountyRun,
}

func init() {
	txFlags(awardBountyCmd, &awardBountyArgs.txCommonArguments)
	awardBountyCmd.Flags().Uint64VarP(&awardBountyArgs.Bounty, "bounty", "b", 0, "bounty index")
	awardBountyCmd.Flags().StringVarP(&awardBountyArgs.Beneficiary, "beneficiary", "a", "", "beneficiary address")
}

func awardBountyRun(cmd *cobra.Command, args []string) {
	beneficiary := common.FromHex(awardBountyArgs.Beneficiary)
	if len(beneficiary) != common.AddressLength {
		fmt.Printf("invalid beneficiary:%v\n", awardBountyArgs.Beneficiary)
		return
	}
	sendTx(awardBountyArgs.txCommonArguments, tx.TxTypeAwardBounty, &tx.AwardBountyTx{
		Bounty:      awardBountyArgs.Bounty,
		Beneficiary: beneficiary,
	})
}

var claimBountyArgs bountyIndexArguments

var claimBountyCmd = &cobra.Command{
	Use:   "claim-bounty",
	Short: "",
	Long:  ``,
	Run:   claimBountyRun,
}

func init() {
	txFlags(claimBountyCmd, &claimBountyArgs.txCommonArguments)
	claimBountyCmd.Flags().Uint64VarP(&claimBountyArgs.Bounty, "bounty", "b", 0, "bounty index")
}

func claimBountyRun(cmd *cobra.Command, args []string) {
	sendTx(claimBountyArgs.txCommonArguments, tx.TxTypeClaimBounty, &tx.ClaimBountyTx{Bounty: claimBountyArgs.Bounty})
}

var cancelBountyArgs bountyIndexArguments

var cancelBountyCmd = &cobra.Command{
	Use:   "cancel-bounty",
	Short: "",
	Long:  ``,
	Run:   cancelBountyRun,
}

func init() {
	txFlags(cancelBountyCmd, &cancelBountyArgs.txCommonArguments)
	cancelBountyCmd.Flags().Uint64VarP(&cancelBountyArgs.Bounty, "bounty", "b", 0, "bounty index")
}

func cancelBountyRun(cmd *cobra.Command, args []string) {
	sendTx(cancelBountyArgs.txCommonArguments, tx.TxTypeCancelBounty, &tx.CancelBountyTx{Bounty: cancelBountyArgs.Bounty})
}

var extendBountyArgs bountyIndexArguments

var extendBountyCmd = &cobra.Command{
	Use:   "extend-bounty",
	Short: "",
	Long:  ``,
	Run:   extendBountyRun,
}

func init() {
	txFlags(extendBountyCmd, &extendBountyArgs.txCommonArguments)
	extendBountyCmd.Flags().Uint64VarP(&extendBountyArgs.Bounty, "bounty", "b", 0, "bounty index")
}

func extendBountyRun(cmd *cobra.Command, args []string) {
	sendTx(extendBountyArgs.txCommonArguments, tx.TxTypeExtendBountyExpiry, &tx.ExtendBountyExpiryTx{Bounty: extendBountyArgs.Bounty})
}

type bountyValueMinimumArguments struct {
	txCommonArguments
	Value uint64
}

var bountyValueMinimumArgs bountyValueMinimumArguments

var bountyValueMinimumCmd = &cobra.Command{
	Use:   "bounty-value-minimum",
	Short: "",
	Long:  ``,
	Run:   bountyValueMinimumRun,
}

func init() {
	txFlags(bountyValueMinimumCmd, &bountyValueMinimumArgs.txCommonArguments)
	bountyValueMinimumCmd.Flags().Uint64VarP(&bountyValueMinimumArgs.Value, "value", "v", 0, "new bounty value minimum")
}

func bountyValueMinimumRun(cmd *cobra.Command, args []string) {
	sendTx(bountyValueMinimumArgs.txCommonArguments, tx.TxTypeUpdateBountyValueMinimum, &tx.UpdateBountyValueMinimumTx{
		Value: bountyValueMinimumArgs.Value,
	})
}

type bountyQueryArguments struct {
	Url    string
	Bounty uint64
}

var bountyQueryArgs bountyQueryArguments

var bountyCmd = &cobra.Command{
	Use:   "bounty",
	Short: "",
	Long:  ``,
	Run:   bountyRun,
}

func init() {
	urlFlag(bountyCmd, &bountyQueryArgs.Url)
	bountyCmd.Flags().Uint64VarP(&bountyQueryArgs.Bounty, "bounty", "b", 0, "bounty index")
}

func bountyRun(cmd *cobra.Command, args []string) {
	queryByIndex(bountyQueryArgs.Url, "/bounties/", bountyQueryArgs.Bounty)
}
