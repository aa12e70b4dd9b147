package main

import "fitsquad-backend/cmd"

func main() {
	cmd.Run()
}
