package main

import (
	"github.com/mchmarny/chefskiss/pkg/cli"
)

func main() {
	cli.Execute()
}
