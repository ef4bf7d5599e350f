// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, TitleStyle.Render("chatdeck "+Version))
			fmt.Fprintln(out, keyValue("Commit:", GitCommit))
			fmt.Fprintln(out, keyValue("Built:", BuildDate))
			fmt.Fprintln(out, keyValue("Go:", runtime.Version()))
			fmt.Fprintln(out, keyValue("Platform:", runtime.GOOS+"/"+runtime.GOARCH))
		},
	}
}
