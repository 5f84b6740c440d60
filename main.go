package main

import "github.com/rand/starweave/internal/cmd"

func main() {
	cmd.Execute()
}
