package main

import "github.com/sunerpy/indexproxy/cmd"

func main() {
	cmd.Execute()
}
