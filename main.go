package main

import "github.com/defistack/automate/cmd"

func main() {
	cmd.Execute()
}
