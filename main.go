package main

import "github.com/theirongolddev/ralphopt/cmd"

func main() {
	cmd.Execute()
}
