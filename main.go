package main

import (
	"os"

	"github.com/addislabs/jobsift/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
