package main

import "github.com/weftworks/weft/cmd/weft/cmd"

func main() {
	cmd.Execute()
}
