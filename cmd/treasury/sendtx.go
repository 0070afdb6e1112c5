package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"

	"github.com/mossline/treasury-app/crypto"
	"github.com/mossline/treasury-app/tx"
)

// flags shared by every transaction command
type txCommonArguments struct {
	Url    string
	Index  uint64
	Nonce  uint64
	Skey   string
	NoSend bool
}

func txFlags(cmd *cobra.Command, args *txCommonArguments) {
	urlFlag(cmd, &args.Url)
	cmd.Flags().Uint64VarP(&args.Index, "index", "i", 0, "account index")
	cmd.Flags().Uint64VarP(&args.Nonce, "nonce", "n", 0, "account nonce")
	cmd.Flags().StringVarP(&args.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	cmd.Flags().BoolVarP(&args.NoSend, "nosend", "", false, "not send transaction but print signature")
}

func sendTx(common txCommonArguments, typ tx.TreasuryTxType, payload any) {
	cli, err := http.New(common.Url, "/websocket")
	if err != nil {
		fmt.Printf("new client err:%v\n", err)
		return
	}
	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		fmt.Printf("get chain genesis err:%v\n", err)
		return
	}
	chainId := gres.Genesis.ChainID
	nonce := common.Nonce
	if nonce == 0 {
		act, err := queryAccount(common.Url, common.Index, "")
		if err != nil {
			return
		}
		nonce = act.Nonce
	}
	btx := &tx.TreasuryTx{
		Version: tx.TxVersion1,
		Type:    typ,
		Nonce:   nonce,
		Caller:  common.Index,
		Tx:      payload,
	}
	dat, err := btx.SigData([]byte(chainId))
	if err != nil {
		fmt.Printf("tx sign data err:%v\n", err)
		return
	}
	println("data signed:", hex.EncodeToString(dat))
	pv := crypto.LoadFilePV(common.Skey)
	sig, err := pv.Sign(dat)
	if err != nil {
		fmt.Printf("sign tx err:%v\n", err)
		return
	}
	println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	println("address:", pv.Address())
	sigs := [][]byte{sig}
	if common.NoSend {
		fmt.Println("transaction signatures:")
		for _, sig := range sigs {
			fmt.Println(hex.EncodeToString(sig))
		}
		return
	}
	btx.Sig = sigs
	dat, err = tx.MarshalTreasuryTx(btx)
	if err != nil {
		fmt.Printf("encode tx err:%v\n", err)
		return
	}
	fmt.Printf("tx:%s\n", string(dat))
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		fmt.Printf("broadcast tx err:%v\n", err)
		return
	}
	dat, _ = json.Marshal(res)
	fmt.Printf("%v\n", string(dat))
}
