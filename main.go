package main

import "ledger-reconciler/cmd"

func main() {
	cmd.Execute()
}
