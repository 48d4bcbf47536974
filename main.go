package main

import (
	"github.com/tanpawarit/parallel-analyst/cmd"
	_ "github.com/tanpawarit/parallel-analyst/pkg/logger/autoload"
)

func main() {
	cmd.Execute()
}
