package main

import "falsh/cmd"

func main() {
	cmd.Execute()
}
