package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "askcampus"}

	root.AddCommand(serveCMD(), migrateCMD(), askCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
