package main

import (
	"os"

	"github.com/pendergraft/skillcert/internal/cli"
)

var version = "dev"

func main() {
	// cobra has already printed the error
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
