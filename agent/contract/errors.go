package contract

import "errors"

var (
	ErrPlannerTransport = errors.New("planner transport failure")
	ErrDuplicateTool    = errors.New("tool already registered")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrUnknownSession   = errors.New("unknown session")
	ErrSessionBusy      = errors.New("session turn already in flight")
	ErrEmptyMessage     = errors.New("user message is empty")
	ErrValidation       = errors.New("validation failed")
)
