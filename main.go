package main

import "github.com/frahmantamala/resto-order/cmd"

func main() {
	cmd.Execute()
}
