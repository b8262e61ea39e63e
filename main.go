package main

import (
	"fmt"
	"os"

	cmd "github.com/artfundry/bounty-server/cmd/bounty"
)

func main() {
	if err := cmd.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
