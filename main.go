package main

import "github.com/KaramelBytes/tabscope-cli/cmd"

func main() {
	cmd.Execute()
}
