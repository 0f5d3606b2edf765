package main

import "github.com/vibast-solutions/ms-go-wallet/cmd"

func main() {
	cmd.Execute()
}
