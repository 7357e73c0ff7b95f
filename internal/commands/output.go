package commands

import "github.com/fatih/color"

var (
	okStyle    = color.New(color.FgGreen).SprintFunc()
	failStyle  = color.New(color.FgRed).SprintFunc()
	labelStyle = color.New(color.FgCyan, color.Bold).SprintFunc()
	dimStyle   = color.New(color.Faint).SprintFunc()
)
