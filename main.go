package main

import "github.com/moviebase/gateapi/cmd"

func main() {
	cmd.Execute()
}
