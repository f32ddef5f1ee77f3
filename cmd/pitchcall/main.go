package main

import "github.com/dkeye/pitchcall/internal/cli"

func main() {
	cli.Execute()
}
