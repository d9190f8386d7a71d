// Package main is the entry point for the catq CLI.
package main

import "github.com/shopkit/catq/internal/cli"

func main() {
	cli.Execute()
}
