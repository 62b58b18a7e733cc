package main

import (
	"github.com/fatih/color"

	"github.com/Ning0612/devmanager/internal/domain"
)

var (
	headerColor  = color.New(color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

func statusColor(status string) *color.Color {
	switch status {
	case domain.StatusSuccess:
		return successColor
	case domain.StatusPartial:
		return warnColor
	default:
		return errorColor
	}
}
