package main

import "github.com/numa-dsu/cmd/numadsu/cmd"

func main() {
	cmd.Execute()
}
