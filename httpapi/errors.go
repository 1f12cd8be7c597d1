package httpapi

import (
	"errors"

	"github.com/delegatescan/delegatescan/errs"
)

func isInvalidRequest(err error) bool  { return errors.Is(err, errs.ErrInvalidRequest) }
func isNoCode(err error) bool          { return errors.Is(err, errs.ErrNoCode) }
func isNoRPCConfigured(err error) bool { return errors.Is(err, errs.ErrNoRPCConfigured) }
func isMalformedHex(err error) bool    { return errors.Is(err, errs.ErrMalformedHex) }
