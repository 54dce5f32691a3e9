package main

import "membersync/cmd"

func main() {
	cmd.Execute()
}
