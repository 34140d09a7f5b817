// Command alpine-admin administers the alpine bot store.
package main

import (
	"os"

	"alpine-bot/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
