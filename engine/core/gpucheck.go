package core

// ErrorChecker is the part of a GPU backend that reports the last API error.
type ErrorChecker interface {
	CheckError() error
}
