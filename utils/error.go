package utils

import "errors"

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorResourceLocked = errors.New("resource is being modified, try again")
)
