package main

import "github.com/mcoot/golfcards/internal/cli"

func main() {
	cli.Execute()
}
