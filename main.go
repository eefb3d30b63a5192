package main

import "github.com/AvaProtocol/safe-userop/cmd"

func main() {
	cmd.Execute()
}
