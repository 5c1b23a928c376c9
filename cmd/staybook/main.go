// Package main is the staybook CLI entry point.
package main

import "github.com/mesh-intelligence/staybook/internal/cli"

func main() {
	cli.Execute()
}
