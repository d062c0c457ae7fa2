// Package main provides the weaver CLI entry point.
package main

import "os"

func main() {
	os.Exit(Execute())
}
