package main

import (
	"context"
	"fmt"

	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

type potArguments struct {
	Url string
}

var potArgs potArguments

var potCmd = &cobra.Command{
	Use:   "pot",
	Short: "",
	Long:  ``,
	Run:   potRun,
}

func init() {
	urlFlag(potCmd, &potArgs.Url)
}

func potRun(cmd *cobra.Command, args []string) {
	cli, err := http.New(potArgs.Url, "/websocket")
	if err != nil {
		fmt.Printf("new client err:%v\n", err)
		return
	}
	res, err := cli.ABCIQuery(context.Background(), "/pot/", nil)
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
