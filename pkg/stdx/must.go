package stdx

// Must0 panics if the provided error is not nil.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns v when err is nil and panics otherwise. It is meant for
// package-level initialization where an error is a programming mistake.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Zero returns the zero value for T.
func Zero[T any]() T {
	var zero T
	return zero
}
