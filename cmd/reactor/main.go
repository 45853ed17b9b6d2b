package main

import (
	"os"

	"github.com/schmitthub/reactor/internal/reactor"
)

func main() {
	os.Exit(reactor.Main())
}
