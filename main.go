package main

import (
	"execbrief/cmd"
	"execbrief/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
