// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zenconv/zenpkg"
)

func newInspectZenCmd() *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "inspect-zen <zen-path>",
		Short: "Print a human-readable structural dump of a Zen package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			pkg, err := zenpkg.ReadZen(zenpkg.ContainerVersion(version), buf)
			if err != nil {
				return err
			}
			dumpZenPackage(pkg)
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", int(zenpkg.ContainerVersionNoExportInfo), "container version to parse as")
	return cmd
}

var (
	sectionHeader = color.New(color.FgCyan, color.Bold).SprintFunc()
	fieldName     = color.New(color.FgYellow).SprintFunc()
	warnColor     = color.New(color.FgRed).SprintFunc()
)

func dumpZenPackage(pkg *zenpkg.ZenPackage) {
	fmt.Println(sectionHeader("Summary"))
	fmt.Printf("  %s: %d\n", fieldName("header_size"), pkg.Summary.HeaderSize)
	fmt.Printf("  %s: %#x\n", fieldName("package_flags"), pkg.Summary.PackageFlags)
	fmt.Printf("  %s: %d\n", fieldName("cooked_header_size"), pkg.Summary.CookedHeaderSize)

	fmt.Println(sectionHeader("Names"))
	fmt.Printf("  count: %d\n", len(pkg.Names))

	fmt.Println(sectionHeader("Imports"))
	for i, idx := range pkg.Imports {
		fmt.Printf("  [%d] %s %#x\n", i, idx.Classify(), uint64(idx))
	}

	fmt.Println(sectionHeader("Exports"))
	for i, e := range pkg.Exports {
		name := "<unknown>"
		if int(e.ObjectName.Index) >= 0 && int(e.ObjectName.Index) < len(pkg.Names) {
			name = pkg.Names[e.ObjectName.Index].Value
		}
		fmt.Printf("  [%d] %s  size=%d offset=%d\n", i, name, e.CookedSerialSize, e.CookedSerialOffset)
	}

	fmt.Println(sectionHeader("Export bundles"))
	for _, b := range pkg.ExportBundleEntries {
		verb := "Create"
		if b.Command == zenpkg.BundleSerialize {
			verb = "Serialize"
		}
		fmt.Printf("  %s(%d)\n", verb, b.LocalExportIndex)
	}

	if len(pkg.Exports) == 0 {
		fmt.Println(warnColor("  no exports found"))
	}
}
