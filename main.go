package main

import "presence-monitor/cmd"

func main() {
	cmd.Execute()
}
