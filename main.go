package main

import "github.com/robbiet76/CalendarScheduler/cmd"

func main() {
	cmd.Execute()
}
