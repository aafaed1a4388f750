package main

import "github.com/OpenTraceLab/OpenTraceSDF/cmd/sdfviz/cmd"

func main() {
	cmd.Execute()
}
