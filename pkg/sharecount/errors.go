package sharecount

import "errors"

// Failure reasons carried by Result.Err. Match with errors.Is.
var (
	ErrUnsupportedNetwork   = errors.New("unsupported network")
	ErrUnsupportedCountType = errors.New("unsupported facebook count type")
	ErrTransport            = errors.New("transport failure")
	ErrStatus               = errors.New("unexpected response status")
	ErrDecode               = errors.New("response is not valid json")
	ErrShape                = errors.New("unexpected response shape")
)
