package objects

import (
	"errors"
	"fmt"

	"github.com/miekg/pkcs11"
	"github.com/rs/zerolog"
)

// TcbError carries the PKCS#11 return value of a failed token operation,
// together with the function that produced it.
type TcbError struct {
	Who         string
	Description string
	Code        uint
}

func NewError(who, description string, code uint) *TcbError {
	return &TcbError{
		Who:         who,
		Description: description,
		Code:        code,
	}
}

func (err TcbError) Error() string {
	return fmt.Sprintf("%s: %s", err.Who, err.Description)
}

// Unwrap exposes the return value, so errors.Is(err, pkcs11.Error(code))
// can be used to test for a given code.
func (err TcbError) Unwrap() error {
	return pkcs11.Error(err.Code)
}

// ErrorToRV extracts the return value from an error, and logs it.
func ErrorToRV(log zerolog.Logger, err error) uint {
	if err == nil {
		return pkcs11.CKR_OK
	}
	var tcb *TcbError
	if errors.As(err, &tcb) {
		log.Debug().Str("who", tcb.Who).Uint("code", tcb.Code).Msg(tcb.Description)
		return tcb.Code
	}
	log.Error().Err(err).Uint("code", pkcs11.CKR_GENERAL_ERROR).Msg("general error")
	return pkcs11.CKR_GENERAL_ERROR
}

// RVName returns a readable name for a return value.
func RVName(code uint) string {
	return pkcs11.Error(code).Error()
}
