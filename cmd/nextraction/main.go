package main

import "nextraction/internal/commands"

func main() {
	commands.Execute()
}
