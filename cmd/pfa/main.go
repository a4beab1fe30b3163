package main

import "github.com/ogulcanaydogan/pfm-alerts/internal/cli"

func main() {
	cli.Execute()
}
