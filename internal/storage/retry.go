package storage

// RetryRead runs a read once more when the first attempt failed with a
// transient error. Writes must not go through here.
func RetryRead[T any](read func() (T, error)) (T, error) {
	v, err := read()
	if err != nil && IsTransient(err) {
		return read()
	}
	return v, err
}
