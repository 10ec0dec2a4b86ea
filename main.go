package main

import "github.com/arityo/merchant-bridge/cmd"

func main() {
	cmd.Execute()
}
