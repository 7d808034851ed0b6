package errors

import "errors"

var (
	ErrConfig           = errors.New("invalid configuration")
	ErrMissingColor     = errors.New("genmove command requires color argument")
	ErrUnknownColor     = errors.New("invalid color argument for genmove command")
	ErrMalformedWinrate = errors.New("winrate data invalid")
	ErrEngineExited     = errors.New("engine process exited")
	ErrEngineIO         = errors.New("engine stream failure")
	ErrControllerIO     = errors.New("controller stream failure")
)
