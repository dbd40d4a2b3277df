package optional

// Optional is a value which may or may not be set.
type Optional[T any] struct {
	value T
	isSet bool
}

// Set stores val and marks the optional as having a value.
func (o *Optional[T]) Set(val T) {
	o.value = val
	o.isSet = true
}

// Get returns the stored value. It panics when no value has been set. Use
// HasValue to check beforehand.
func (o *Optional[T]) Get() T {
	if !o.isSet {
		panic("getting the value of an empty optional")
	}
	return o.value
}

// HasValue returns true if a value has been set.
func (o *Optional[T]) HasValue() bool {
	return o.isSet
}
