package scheduler

import "errors"

var (
	errAlreadyRunning = errors.New("scheduler is already running")
	errNoRestart      = errors.New("scheduler cannot be restarted after stop")
	errNotRunning     = errors.New("scheduler is not running")
)
