package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/restaurant-pos/billing"
	"gorm.io/gorm"
)

// Kind groups failures by how the caller should react to them.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindPrecondition Kind = "precondition"
	KindNotFound     Kind = "not_found"
	KindUnavailable  Kind = "unavailable"
)

const (
	CodeTableAlreadyOccupied   = "TABLE_ALREADY_OCCUPIED"
	CodeOrderAlreadyFinalized  = "ORDER_ALREADY_FINALIZED"
	CodeCreditRequiresCustomer = "CREDIT_REQUIRES_CUSTOMER"
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeNotFound               = "NOT_FOUND"
	CodeRetryable              = "RETRYABLE"
)

// Error is the typed failure returned by every service operation. Current holds the
// authoritative state on conflicts so the caller can resynchronize.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	Current interface{}
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two service errors by Code, so errors.Is(err, ErrTableAlreadyOccupied)
// works for any occupied-table failure regardless of the attached state.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

var (
	ErrTableAlreadyOccupied   = &Error{Kind: KindConflict, Code: CodeTableAlreadyOccupied, Message: "table is already occupied"}
	ErrOrderAlreadyFinalized  = &Error{Kind: KindConflict, Code: CodeOrderAlreadyFinalized, Message: "order is already finalized"}
	ErrCreditRequiresCustomer = &Error{Kind: KindPrecondition, Code: CodeCreditRequiresCustomer, Message: "credit payment requires a customer on the order"}
	ErrInvalidQuantity        = &Error{Kind: KindValidation, Code: CodeInvalidQuantity, Message: "invalid quantity"}
)

func tableOccupied(current interface{}) *Error {
	return &Error{Kind: KindConflict, Code: CodeTableAlreadyOccupied, Message: "table is already occupied", Current: current}
}

func orderFinalized(current interface{}) *Error {
	return &Error{Kind: KindConflict, Code: CodeOrderAlreadyFinalized, Message: "order is already finalized", Current: current}
}

func invalidQuantity(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidQuantity, Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidInput, Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string, id uint) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf("%s %d not found", what, id)}
}

func retryable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Code: CodeRetryable, Message: op + " failed, retry the request", Err: err}
}

// withFieldPrefix nests a validation error's field under prefix, e.g.
// "quantity" becomes "items[2].quantity".
func withFieldPrefix(prefix string, err error) error {
	var serr *Error
	if !errors.As(err, &serr) || serr.Field == "" {
		return err
	}
	nested := *serr
	nested.Field = prefix + "." + serr.Field
	return &nested
}

// lookupErr turns gorm's not-found into a typed NotFound and leaves everything else
// as a wrapped storage failure.
func lookupErr(what string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", what, id, err)
}

// fromBilling maps billing package errors onto the service taxonomy.
func fromBilling(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, billing.ErrCreditRequiresCustomer) {
		return ErrCreditRequiresCustomer
	}
	var verr *billing.ValidationError
	if errors.As(err, &verr) {
		code := CodeInvalidInput
		if strings.HasPrefix(verr.Field, "complimentary") {
			code = CodeInvalidQuantity
		}
		return &Error{Kind: KindValidation, Code: code, Field: verr.Field, Message: verr.Message, Err: err}
	}
	return err
}

// KindOf reports the Kind of a service error, or "" for anything else.
func KindOf(err error) Kind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return ""
}
