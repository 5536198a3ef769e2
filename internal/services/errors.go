package services

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Persistence and permission errors abort the
// requested mutation; delivery errors never do.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadyTerminal  = errors.New("episode already completed")
	ErrStageUnassigned  = errors.New("episode has not been started")
	ErrValidation       = errors.New("invalid input")
	ErrDelivery         = errors.New("message delivery failed")
)

// PermissionDeniedError names the stage and its assignee so the boundary
// can render a human-readable denial.
type PermissionDeniedError struct {
	Stage    string // current stage name
	Assignee string // display of the current assignee, 未分配 when empty
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("当前阶段 %s 的负责人是 %s，你没有权限推进", e.Stage, e.Assignee)
}

func (e *PermissionDeniedError) Unwrap() error { return ErrPermissionDenied }

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}
