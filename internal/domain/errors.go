package domain

import "errors"

var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrStageIO         = errors.New("stage write failed")
	ErrNotFound        = errors.New("not found")
)
