package main

import "github.com/frahmantamala/site-access/cmd"

func main() {
	cmd.Execute()
}
