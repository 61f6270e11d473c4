// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "zenpkg",
		Short: "Convert between Legacy and Zen game-engine package formats",
	}

	root.AddCommand(newToZenCmd())
	root.AddCommand(newFromIostoreLegacyCmd())
	root.AddCommand(newInspectZenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
