package main

import "github.com/ifeis/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
