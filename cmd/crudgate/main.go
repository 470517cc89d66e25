// Package main is the entry point for CRUDGate.
package main

func main() {
	Execute()
}
