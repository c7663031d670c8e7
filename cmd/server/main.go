package main

import "github.com/DoyleJ11/typerush-backend/internal/cli"

func main() {
	cli.Execute(cli.NewServeCommand(nil))
}
