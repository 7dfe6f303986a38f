package main

import "featurerag/internal/cli"

func main() {
	cli.Execute()
}
