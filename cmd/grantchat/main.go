package main

import "github.com/diogo/grantchat/internal/commands"

func main() {
	commands.Execute()
}
