package main

import (
	"github.com/spf13/cobra"

	"github.com/gitter-badger/astroid/internal/cli"
)

func main() {
	err := cli.Execute()
	cobra.CheckErr(err)
}
