package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsCode(t *testing.T) {
	base := NotFound("CSV file data/raw/x.csv")
	wrapped := Wrapf(Wrap(base, "failed to load"), "stage %s", "anxiety")

	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Equal(t, "stage anxiety: failed to load: CSV file data/raw/x.csv not found", wrapped.Error())
}

func TestWrap_PlainError(t *testing.T) {
	err := Wrap(fmt.Errorf("disk full"), "failed to write")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeConfigInvalid, fmt.Errorf("bad url"))
	assert.True(t, HasCode(err, CodeConfigInvalid))
	assert.Equal(t, "bad url", err.Error())

	recoded := WithCode(CodeValidationError, MissingColumn("prevalence", []string{"a", "b"}))
	assert.Equal(t, CodeValidationError, GetCode(recoded))
	assert.Contains(t, recoded.Error(), "tried: a | b")
}

func TestExternalServiceError(t *testing.T) {
	cause := fmt.Errorf("status 503")
	err := ExternalServiceError("nightlight", cause)
	assert.Equal(t, CodeExternalService, err.Code)
	assert.ErrorIs(t, err, cause)
}
