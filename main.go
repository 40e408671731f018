package main

import "health-sync/cmd"

func main() {
	cmd.Execute()
}
