package pointer

func ToPtr[T any](v T) *T {
	return &v
}

// Deref 取指针的值, nil 时返回零值
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
