package main

import "github.com/dnadiscipleship/hub/cmd/hubapi/cmd"

func main() {
	cmd.Execute()
}
