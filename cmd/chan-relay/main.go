package main

import (
	cmd "github.com/rohmanhakim/chan-relay/internal/cli"
)

func main() {
	cmd.Execute()
}
