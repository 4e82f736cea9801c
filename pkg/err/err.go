package errprocess

import (
	"errors"
	"fmt"

	"secure_chat_relay/pkg/logger"
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Setf set err info with format
func Setf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	logger.Log.Error(msg)
	return errors.New(msg)
}
