// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zenconv/zenpkg"
)

func newToZenCmd() *cobra.Command {
	var usmapPath string
	var scriptDBPath string

	cmd := &cobra.Command{
		Use:   "to-zen <asset-path>",
		Short: "Convert a Legacy asset pair into a .uzenasset file next to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetPath := args[0]
			header, err := os.ReadFile(assetPath)
			if err != nil {
				return err
			}
			bodyPath := strings.TrimSuffix(assetPath, filepath.Ext(assetPath)) + ".uexp"
			body, err := os.ReadFile(bodyPath)
			if err != nil {
				return err
			}

			var scriptDB *zenpkg.ScriptObjectDatabase
			if scriptDBPath != "" {
				blob, err := os.ReadFile(scriptDBPath)
				if err != nil {
					return err
				}
				scriptDB, err = zenpkg.LoadScriptObjectDatabase(blob)
				if err != nil {
					return err
				}
			}

			codec := zenpkg.NewCodec(zenpkg.Config{ContainerVersion: zenpkg.ContainerVersionNoExportInfo}, scriptDB, nil)
			packagePath := packagePathFromFile(assetPath)

			pkg, warnings, err := codec.ToZen(header, body, packagePath)
			if err != nil {
				return err
			}
			for _, w := range warningLines(warnings) {
				fmt.Fprintln(os.Stderr, "warning:", w)
			}

			out, err := zenpkg.WriteZen(pkg)
			if err != nil {
				return err
			}

			outPath := strings.TrimSuffix(assetPath, filepath.Ext(assetPath)) + ".uzenasset"
			return os.WriteFile(outPath, out, 0o644)
		},
	}

	cmd.Flags().StringVar(&usmapPath, "usmap", "", "external schema (.usmap) file, if the payload needs one")
	cmd.Flags().StringVar(&scriptDBPath, "scriptdb", "", "script-object database blob")
	return cmd
}

func newFromIostoreLegacyCmd() *cobra.Command {
	var filter string
	var withDeps bool

	cmd := &cobra.Command{
		Use:   "from-iostore-legacy <paks-dir> <output-dir>",
		Short: "Extract packages from a container tree into Legacy pairs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("from-iostore-legacy: container directory walking is outside this codec's scope; see DESIGN.md")
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "only extract packages matching this path prefix")
	cmd.Flags().BoolVar(&withDeps, "with-deps", false, "also extract transitively imported packages")
	return cmd
}

func packagePathFromFile(assetPath string) string {
	base := strings.TrimSuffix(filepath.Base(assetPath), filepath.Ext(assetPath))
	dir := filepath.ToSlash(filepath.Dir(assetPath))
	if dir == "." {
		return "/Game/" + base
	}
	return "/Game/" + strings.TrimPrefix(dir, "/") + "/" + base
}

func warningLines(w *zenpkg.Warnings) []string {
	if w == nil || w.Err() == nil {
		return nil
	}
	return strings.Split(w.Err().Error(), "; ")
}
