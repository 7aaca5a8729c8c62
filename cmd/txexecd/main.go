// Copyright 2024 Terminos Network
// This file is part of the gtos library.
//
// The gtos library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gtos library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gtos library. If not, see <http://www.gnu.org/licenses/>.

// txexecd runs a single batch of transactions read from a JSON file and
// prints the resulting return-sets, the same one-shot CLI shape as
// cmd/toskey (cmd/toskey/main.go), generalized from key management to
// batch execution.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/txexec/core/batchexec"
	"github.com/tos-network/txexec/core/plugin"
	"github.com/tos-network/txexec/core/txexec"
	"github.com/tos-network/txexec/core/types"
	"github.com/tos-network/txexec/core/vmexec"
	"github.com/tos-network/txexec/internal/flags"
	"github.com/tos-network/txexec/log"
	"github.com/tos-network/txexec/params"
)

var gitCommit = ""
var gitDate = ""

var app *cli.App

var (
	batchFileFlag = &cli.StringFlag{
		Name:     "batch",
		Usage:    "path to a JSON-encoded BatchRequest",
		Required: true,
		Category: flags.ExecCategory,
	}
	verboseFlag = &cli.BoolFlag{
		Name:     "verbose",
		Usage:    "log every transaction failure at error level",
		Category: flags.LoggingCategory,
	}
	feeSymbolFlag = &cli.StringFlag{
		Name:     "fee.symbol",
		Usage:    "symbol charged as the fixed per-transaction fee",
		Value:    "TOS",
		Category: flags.PluginCategory,
	}
	feeAmountFlag = &cli.Uint64Flag{
		Name:     "fee.amount",
		Usage:    "fixed fee amount charged from the sender before the VM body runs",
		Value:    21000,
		Category: flags.PluginCategory,
	}
	resourceTokenAmountFlag = &cli.Uint64Flag{
		Name:     "resourcetoken.compute",
		Usage:    "compute resource-token units debited from the sender after the VM body runs",
		Value:    1,
		Category: flags.PluginCategory,
	}
)

func init() {
	app = flags.NewApp(gitCommit, gitDate, "a batch transaction executor")
	app.Flags = []cli.Flag{batchFileFlag, verboseFlag, feeSymbolFlag, feeAmountFlag, resourceTokenAmountFlag}
	app.Action = run
}

func run(ctx *cli.Context) error {
	data, err := os.ReadFile(ctx.String(batchFileFlag.Name))
	if err != nil {
		return fmt.Errorf("reading batch file: %w", err)
	}

	var req types.BatchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decoding batch request: %w", err)
	}

	vm := vmexec.NewStaticVM()
	vm.Register(params.SystemActionAddress, plugin.SystemExecutive{})

	fee := &plugin.FeePlugin{
		Symbol: ctx.String(feeSymbolFlag.Name),
		Amount: new(big.Int).SetUint64(ctx.Uint64(feeAmountFlag.Name)),
	}
	resourceToken := &plugin.ResourceTokenPlugin{
		Tokens: map[string]uint64{"compute": ctx.Uint64(resourceTokenAmountFlag.Name)},
	}

	singleTx := txexec.New(vm, []plugin.Plugin{fee}, []plugin.Plugin{resourceToken}, nil)
	batch := batchexec.New(singleTx, nil, ctx.Bool(verboseFlag.Name))

	returnSets, err := batch.Execute(context.Background(), &req)
	if err != nil {
		return fmt.Errorf("executing batch: %w", err)
	}

	enc, err := json.MarshalIndent(returnSets, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}

func main() {
	if err := app.Run(os.Args); err != nil {
		log.Crit("txexecd failed", "error", err)
	}
}
