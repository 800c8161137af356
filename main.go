package main

import "github.com/krwhynot/pantry-crm/cmd"

func main() {
	cmd.Execute()
}
