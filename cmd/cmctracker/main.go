package main

import "cmctracker/internal/cli"

func main() {
	cli.Execute()
}
