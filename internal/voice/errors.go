package voice

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups voice service failures by what the user can do about them.
type Category string

const (
	CategoryCredentialInvalid Category = "invalid-credential"
	CategoryUnauthorized      Category = "unauthorized"
	CategoryPermission        Category = "permission-denied"
	CategoryOther             Category = "other"
)

var (
	ErrCredentialInvalid = errors.New("voice service credential is invalid")
	ErrUnauthorized      = errors.New("voice service authentication failed")
	ErrPermission        = errors.New("voice service permission denied")
	ErrServiceOther      = errors.New("voice service error")

	// ErrClosed is returned by a Session used after Close.
	ErrClosed = errors.New("voice session closed")
	// ErrCallInProgress is returned by Start while a call stream is open.
	ErrCallInProgress = errors.New("voice call already in progress")
)

// ServiceError is a classified voice gateway or transport failure.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

func (e *ServiceError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("voice service %s: %s", e.Category, msg)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches the category sentinel so callers can use errors.Is.
func (e *ServiceError) Is(target error) bool {
	return target == categorySentinel(e.Category)
}

// Classify maps err onto a category. Already-classified errors keep their
// category; everything else is matched by case-insensitive substring.
func Classify(err error) Category {
	if err == nil {
		return CategoryOther
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category != "" {
		return svcErr.Category
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage maps a raw gateway message onto a category.
func ClassifyMessage(message string) Category {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "invalid key"):
		return CategoryCredentialInvalid
	case strings.Contains(lower, "unauthorized"):
		return CategoryUnauthorized
	case strings.Contains(lower, "permission"):
		return CategoryPermission
	default:
		return CategoryOther
	}
}

// Wrap returns err as a *ServiceError, classifying it if needed.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return &ServiceError{Category: Classify(err), Message: err.Error(), Err: err}
}

func categorySentinel(category Category) error {
	switch category {
	case CategoryCredentialInvalid:
		return ErrCredentialInvalid
	case CategoryUnauthorized:
		return ErrUnauthorized
	case CategoryPermission:
		return ErrPermission
	default:
		return ErrServiceOther
	}
}
