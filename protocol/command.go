package protocol

import (
	"strconv"
	"strings"
)

// Command is a single request to the server. The set of implementations is
// closed: every variant lives in this package.
//
// A Command fully determines the bytes that are sent for it, see Encode.
type Command interface {
	// Args returns the command keyword followed by its arguments, in the
	// order they go on the wire.
	Args() []string

	command()
}

// Keys returns the keys matching a glob style pattern.
type Keys struct {
	Pattern string
}

// Del removes one or more keys.
type Del struct {
	Keys Arity[string]
}

// Exists counts how many of the given keys exist.
type Exists struct {
	Keys Arity[string]
}

// Echo asks the server to send Message back.
type Echo struct {
	Message string
}

// Auth authenticates the connection with a password only.
type Auth struct {
	Password string
}

// AuthUser authenticates the connection as a named user.
type AuthUser struct {
	User     string
	Password string
}

func (c Keys) Args() []string {
	return []string{"KEYS", c.Pattern}
}

func (c Del) Args() []string {
	return appendEach([]string{"DEL"}, c.Keys)
}

func (c Exists) Args() []string {
	return appendEach([]string{"EXISTS"}, c.Keys)
}

func (c Echo) Args() []string {
	return []string{"ECHO", c.Message}
}

func (c Auth) Args() []string {
	return []string{"AUTH", c.Password}
}

func (c AuthUser) Args() []string {
	return []string{"AUTH", c.User, c.Password}
}

func (Keys) command()     {}
func (Del) command()      {}
func (Exists) command()   {}
func (Echo) command()     {}
func (Auth) command()     {}
func (AuthUser) command() {}

// Humanize renders cmd the way a person would type it into a redis-cli, e.g.
// `LPUSHX k v`. Arguments that are empty or contain whitespace are quoted.
func Humanize(cmd Command) string {
	args := cmd.Args()
	parts := make([]string, len(args))

	for i, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\r\n\"") {
			parts[i] = strconv.Quote(arg)
			continue
		}

		parts[i] = arg
	}

	return strings.Join(parts, " ")
}

// Equal reports whether a and b would put identical bytes on the wire.
func Equal(a, b Command) bool {
	if a == nil || b == nil {
		return a == b
	}

	aa, ba := a.Args(), b.Args()
	if len(aa) != len(ba) {
		return false
	}

	for i := range aa {
		if aa[i] != ba[i] {
			return false
		}
	}

	return true
}

func appendEach(dst []string, a Arity[string]) []string {
	a.Each(func(s string) {
		dst = append(dst, s)
	})

	return dst
}

func appendPairs(dst []string, a Arity[Pair]) []string {
	a.Each(func(p Pair) {
		dst = append(dst, p.Key, p.Value)
	})

	return dst
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func utoa(n uint64) string {
	return strconv.FormatUint(n, 10)
}
