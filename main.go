package main

import "github.com/superhq-ai/neko/cmd"

func main() {
	cmd.Execute()
}
