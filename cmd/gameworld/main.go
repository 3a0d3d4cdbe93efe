package main

import (
	"context"
	"log"

	"gameworld/internal/cli"
)

func main() {
	if err := cli.NewRoot().ExecuteContext(context.Background()); err != nil {
		log.Fatal(err.Error())
	}
}
