package errors

import (
	"os"

	log "github.com/scenforge/scenforge/pkg/logger"
)

// OsExit is a variable for testing, so we can mock os.Exit.
var OsExit = os.Exit

// CheckErrorAndPrint logs an error message if err is not nil.
func CheckErrorAndPrint(err error) {
	if err == nil {
		return
	}
	log.Error(err.Error())
}

// CheckErrorPrintAndExit logs an error message and exits with exit code 1.
func CheckErrorPrintAndExit(err error) {
	if err == nil {
		return
	}
	CheckErrorAndPrint(err)
	OsExit(1)
}
