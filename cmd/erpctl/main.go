package main

import "github.com/petshop/erp/internal/interfaces/cli"

func main() {
	cli.Execute()
}
