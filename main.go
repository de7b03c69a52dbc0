package main

import "github.com/stackvista/es-snapper/cmd"

func main() {
	cmd.Execute()
}
