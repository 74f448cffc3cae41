package main

import "app-host/cmd"

func main() {
	cmd.Execute()
}
