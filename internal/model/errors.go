package model

import (
	"errors"
)

var (
	ErrNoStages = errors.New("stages: at least one stage is required")
)
