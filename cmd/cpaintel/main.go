package main

import (
	"cpaintel-backend/cmd/cpaintel/commands"
	"cpaintel-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
