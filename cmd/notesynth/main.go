package main

import "github.com/Jennie1434/BDD-lvmh/internal/cli"

func main() {
	cli.Execute()
}
