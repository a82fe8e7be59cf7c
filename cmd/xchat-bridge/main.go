// Command xchat-bridge connects a user interface to the local xchat daemon.
package main

func main() {
	Execute()
}
