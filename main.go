package main

import "github.com/spaghettifunk/texstream/cmd"

func main() {
	cmd.Execute()
}
