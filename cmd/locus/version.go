package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/locus"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of locus",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("locus version %s\n", strings.TrimSpace(locus.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
