package alpacastream

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("dial: %w", newError(KindTransportFailure, "connect", io.EOF))

	assert.ErrorIs(t, err, ErrTransportFailure)
	assert.ErrorIs(t, err, io.EOF)
	assert.NotErrorIs(t, err, ErrUnexpectedClosure)
	assert.True(t, IsConnectionError(err))
	assert.Equal(t, "transport_failure: connect: EOF", errors.Unwrap(err).Error())
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(newError(KindUnexpectedClosure, "closed", nil)))
	assert.False(t, IsConnectionError(ErrSequenceViolation))
	assert.False(t, IsConnectionError(io.EOF))
	assert.False(t, IsConnectionError(nil))
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "protocol_sequence_violation", KindSequenceViolation.String())
	assert.Equal(t, "unknown_kind_42", ErrorKind(42).String())
}
