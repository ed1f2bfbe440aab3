package main

import "estante/commands"

func main() {
	commands.Execute()
}
