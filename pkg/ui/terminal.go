package ui

import "fmt"

// Color functions for terminal output
var (
	Cyan   = colorize("\033[36m%s\033[0m")
	Yellow = colorize("\033[33m%s\033[0m")
	Red    = colorize("\033[31m%s\033[0m")
	Green  = colorize("\033[32m%s\033[0m")
	Dim    = colorize("\033[2m%s\033[0m")
)

var quietMode bool

// SetQuietMode suppresses everything except errors
func SetQuietMode(quiet bool) {
	quietMode = quiet
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintInfo prints a label/value pair
func PrintInfo(label, value string) {
	if quietMode {
		return
	}
	fmt.Printf("%s %s\n", Cyan(label+":"), value)
}

// PrintSuccess prints a success message in green
func PrintSuccess(format string, args ...interface{}) {
	if quietMode {
		return
	}
	fmt.Println(Green(fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(format string, args ...interface{}) {
	if quietMode {
		return
	}
	fmt.Println(Yellow(fmt.Sprintf(format, args...)))
}

// PrintError prints an error message in red
func PrintError(format string, args ...interface{}) {
	fmt.Println(Red(fmt.Sprintf(format, args...)))
}
