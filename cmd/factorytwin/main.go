package main

import "github.com/Kumarhq/factory-digital-twin-gitops-sub001/cmd/factorytwin/commands"

func main() {
	commands.Execute()
}
