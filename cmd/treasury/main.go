package main

import (
	"fmt"
	"os"
)

func main() {
	clCmd.AddCommand(initCmd)
	clCmd.AddCommand(versionCmd)
	clCmd.AddCommand(pubkeyCmd)
	clCmd.AddCommand(accountCmd)
	clCmd.AddCommand(potCmd)
	clCmd.AddCommand(proposeSpendCmd)
	clCmd.AddCommand(rejectProposalCmd)
	clCmd.AddCommand(approveProposalCmd)
	clCmd.AddCommand(proposalCmd)
	clCmd.AddCommand(reportAwesomeCmd)
	clCmd.AddCommand(retractTipCmd)
	clCmd.AddCommand(tipNewCmd)
	clCmd.AddCommand(tipCmd)
	clCmd.AddCommand(closeTipCmd)
	clCmd.AddCommand(tipQueryCmd)
	clCmd.AddCommand(proposeBountyCmd)
	clCmd.AddCommand(proposeSubBountyCmd)
	clCmd.AddCommand(rejectBountyCmd)
	clCmd.AddCommand(approveBountyCmd)
	clCmd.AddCommand(awardBountyCmd)
	clCmd.AddCommand(claimBountyCmd)
	clCmd.AddCommand(cancelBountyCmd)
	clCmd.AddCommand(extendBountyCmd)
	clCmd.AddCommand(bountyValueMinimumCmd)
	clCmd.AddCommand(bountyCmd)
	if err := clCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
