package main

import "github.com/relloyd/obspipe/cmd"

func main() {
	cmd.Execute()
}
