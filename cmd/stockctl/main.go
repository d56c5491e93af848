package main

import "bookshop-pos/cmd/stockctl/commands"

func main() {
	commands.Execute()
}
