package main

import "github.com/plenert/reconcile/reconcile/cmd"

func main() {
	cmd.Execute()
}
