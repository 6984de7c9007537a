package protocol

// Side selects which end of a list an operation works on.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}

	return "left"
}

// Insertion controls whether a write happens unconditionally, only when the
// target already exists, or only when it does not.
type Insertion int

const (
	Always Insertion = iota
	IfExists
	IfNotExists
)

func (i Insertion) String() string {
	switch i {
	case IfExists:
		return "if-exists"
	case IfNotExists:
		return "if-not-exists"
	default:
		return "always"
	}
}

// Arity marks whether a command operates on exactly one operand or on a
// sequence of them. Some commands serialize differently depending on it, e.g.
// GET vs MGET.
//
// The zero value is an empty sequence. Commands over an Arity need at least
// one operand and are encoded as given, so a zero Arity produces a frame the
// server rejects; build it with One or Many. Untyped input goes through
// cli.Parse, which checks operand counts before a command exists.
type Arity[T any] struct {
	items []T
	one   bool
}

// One builds a single operand Arity.
func One[T any](v T) Arity[T] {
	return Arity[T]{items: []T{v}, one: true}
}

// Many builds a multi operand Arity. The values are copied.
func Many[T any](vs ...T) Arity[T] {
	items := make([]T, len(vs))
	copy(items, vs)

	return Arity[T]{items: items}
}

// IsOne reports whether a was built with One.
func (a Arity[T]) IsOne() bool {
	return a.one
}

func (a Arity[T]) Len() int {
	return len(a.items)
}

// Each calls fn for every operand in order.
func (a Arity[T]) Each(fn func(T)) {
	for _, item := range a.items {
		fn(item)
	}
}

// Pair is a key (or field) and the value assigned to it.
type Pair struct {
	Key   string
	Value string
}
