package main

import "github.com/davarch/build-compare/cmd/build-compare/cli"

func main() {
	cli.Execute()
}
