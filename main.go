package main

import (
	"SyncBeat/cmd"
)

func main() {
	cmd.Execute()
}
