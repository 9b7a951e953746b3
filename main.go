package main

import "github.com/kozaktomas/facial-attendance/cmd"

func main() {
	cmd.Execute()
}
