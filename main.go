package main

import "github.com/lepinkainen/dbupload/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
