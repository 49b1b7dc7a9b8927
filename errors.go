package inertiaclient

import (
	"errors"
	"slices"

	"go.inout.gg/inertiaclient/inertiavalue"
)

var (
	_ error = (*validationError)(nil)
	_ error = (Errors)(nil)

	_ ValidationError = (*validationError)(nil)
)

// DefaultErrorBag is the unnamed error bag.
const DefaultErrorBag = ""

// errorsProp is the page prop validation errors are delivered in.
const errorsProp = "errors"

var (
	// ErrVisitCancelled is returned by Visit.Wait when the visit was
	// cancelled explicitly.
	ErrVisitCancelled = errors.New("inertiaclient: visit cancelled")

	// ErrVisitInterrupted is returned by Visit.Wait when a newer synchronous
	// visit replaced this one.
	ErrVisitInterrupted = errors.New("inertiaclient: visit interrupted")

	// ErrVisitPrevented is returned by Visit.Wait when OnBefore or a
	// "before" listener rejected the visit.
	ErrVisitPrevented = errors.New("inertiaclient: visit prevented")
)

// ValidationError is a single field validation failure.
type ValidationError interface {
	// Field returns the name of the field that failed validation.
	Field() string

	// Error returns the human-readable message.
	Error() string
}

type validationError struct {
	field   string
	message string
}

func (err *validationError) Error() string { return err.message }
func (err *validationError) Field() string { return err.field }

// Errors maps field names to validation messages, as delivered in the
// "errors" page prop.
type Errors map[string]string

func (errs Errors) Error() string { return "validation errors" }
func (errs Errors) Len() int      { return len(errs) }

// ValidationErrors returns the errors ordered by field name.
func (errs Errors) ValidationErrors() []ValidationError {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}

	slices.Sort(fields)

	out := make([]ValidationError, 0, len(fields))
	for _, f := range fields {
		out = append(out, &validationError{field: f, message: errs[f]})
	}

	return out
}

// errorsFromValue converts a mapping prop into Errors. Non-string messages
// keep their JSON text so that nothing the server sent is lost.
func errorsFromValue(v inertiavalue.Value) Errors {
	m := v.Map()
	errs := make(Errors, m.Len())

	for field, msg := range m.All() {
		if msg.Kind() == inertiavalue.KindString {
			errs[field] = msg.Str()
			continue
		}

		b, err := msg.MarshalJSON()
		if err != nil {
			continue
		}

		errs[field] = string(b)
	}

	return errs
}

// pageErrors returns the "errors" prop of page if it is a non-empty mapping.
func pageErrors(page *Page) (inertiavalue.Value, bool) {
	v, ok := page.Prop(errorsProp)
	if !ok || v.Kind() != inertiavalue.KindMapping || v.Map().Len() == 0 {
		return inertiavalue.Value{}, false
	}

	return v, true
}

// scopedErrors narrows errs to errorBag. The default bag returns errs as is.
func scopedErrors(errs inertiavalue.Value, errorBag string) Errors {
	if errorBag == DefaultErrorBag {
		return errorsFromValue(errs)
	}

	bag, ok := errs.Map().Get(errorBag)
	if !ok {
		return Errors{}
	}

	return errorsFromValue(bag)
}

// HasErrors reports whether page carries validation errors.
func HasErrors(page *Page) bool {
	_, ok := pageErrors(page)
	return ok
}
