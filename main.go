package main

import (
	"os"

	"github.com/ashevtsov/jobsieve/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
