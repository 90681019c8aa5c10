package main

import "ucrelay/cmd"

func main() {
	cmd.Execute()
}
