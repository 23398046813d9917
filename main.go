// ./main.go
package main

import (
	"github.com/xkilldash9x/kite-autologin/cmd"
)

// main is the entry point for the kite-autologin CLI.
func main() {
	cmd.Execute()
}
