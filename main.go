package main

import "github.com/medivuno/telehealth-server/cmd"

func main() {
	cmd.Execute()
}
