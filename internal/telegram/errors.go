package telegram

import (
	"errors"
	"fmt"
)

var errMissingID = errors.New("message record has no id")

// UnknownTypeError marks a record whose type is neither message nor service.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}

// BadTimestampError marks a record whose date_unixtime is not integer seconds.
type BadTimestampError struct {
	Value string
}

func (e *BadTimestampError) Error() string {
	return fmt.Sprintf("unparseable date_unixtime %q", e.Value)
}
