// File: courtbook/main.go
package main

import "courtbook/cmd"

func main() {
	cmd.Execute()
}
