package main

import (
	"os"

	"github.com/guiyumin/vkit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
