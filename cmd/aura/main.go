package main

import "github.com/vanpelt/aura/internal/cmd"

func main() {
	cmd.Execute()
}
