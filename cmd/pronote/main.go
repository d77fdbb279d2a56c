package main

import "github.com/tansive/pronote/internal/cli"

func main() {
	cli.Execute()
}
