package main

import "github.com/ValentinKolb/sockrpc/cmd"

func main() {
	cmd.Execute()
}
