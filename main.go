package main

import "github.com/theirongolddev/dealdates/cmd"

func main() {
	cmd.Execute()
}
