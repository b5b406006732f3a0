package main

import "github.com/ByLCY/thumbsmith/cmd"

func main() {
	cmd.Execute()
}
