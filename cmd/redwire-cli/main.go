// Command redwire-cli is a development and smoke-test tool built on the
// redwire client library.
package main

import "redwire/cmd"

func main() {
	cmd.Execute()
}
