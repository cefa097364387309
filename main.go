package main

import "github.com/dt-pm-tools/kbagent/cmd"

func main() {
	cmd.Execute()
}
