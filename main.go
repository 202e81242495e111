package main

import (
	"context"

	"github.com/prestokit/stagecraft/cmd"
)

func main() {
	ctx := context.Background()
	cmd.Execute(ctx)
}
