package source

// Result is the outcome of one provider call: a value or a classified error,
// never both.
type Result[T any] struct {
	Value T
	Err   *Error
}

// OK wraps a successful value.
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps an error, classifying it if it is not already an *Error.
func Fail[T any](src, op string, err error) Result[T] {
	if err == nil {
		err = New(Unknown, src, op, nil)
	}
	return Result[T]{Err: Classify(src, op, err)}
}

// From builds a Result from the usual (value, error) pair.
func From[T any](src, op string, v T, err error) Result[T] {
	if err != nil {
		return Fail[T](src, op, err)
	}
	return OK(v)
}

// Ok reports whether the result carries a value.
func (r Result[T]) Ok() bool { return r.Err == nil }

// Kind returns the failure kind, or "" on success.
func (r Result[T]) Kind() Kind {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind
}

// Unwrap returns the (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	if r.Err != nil {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}
