package main

import "github.com/MrEthical07/shopauth/cmd/shopauth/cmd"

func main() {
	cmd.Execute()
}
