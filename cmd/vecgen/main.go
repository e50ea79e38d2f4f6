package main

import "github.com/chiplabs/vecgen/cmd/vecgen/cmd"

func main() {
	cmd.Execute()
}
