package protocol

import "time"

// StringSet writes one or more string keys.
//
// With a single pair it becomes `SET key value [PX ms] [NX|XX]`. With many
// pairs it becomes MSET, or MSETNX when Insertion is IfNotExists; Expiry is
// ignored for many pairs as the server has no way to express it.
type StringSet struct {
	Values    Arity[Pair]
	Expiry    time.Duration
	Insertion Insertion
}

// StringGet reads one (GET) or many (MGET) keys.
type StringGet struct {
	Keys Arity[string]
}

// StringLen returns the length of the value stored at Key.
type StringLen struct {
	Key string
}

// Incr increments Key by By. An amount of exactly 1 is sent as INCR.
type Incr struct {
	Key string
	By  int64
}

// Decr decrements Key by By. An amount of exactly 1 is sent as DECR.
type Decr struct {
	Key string
	By  int64
}

// Append appends Value to the string at Key.
type Append struct {
	Key   string
	Value string
}

func (c StringSet) Args() []string {
	if !c.Values.IsOne() {
		keyword := "MSET"
		if c.Insertion == IfNotExists {
			keyword = "MSETNX"
		}

		return appendPairs([]string{keyword}, c.Values)
	}

	args := appendPairs([]string{"SET"}, c.Values)

	if c.Expiry > 0 {
		// Rounded up, PX 0 is rejected by the server
		ms := (c.Expiry + time.Millisecond - 1) / time.Millisecond
		args = append(args, "PX", itoa(int64(ms)))
	}

	switch c.Insertion {
	case IfExists:
		args = append(args, "XX")
	case IfNotExists:
		args = append(args, "NX")
	}

	return args
}

func (c StringGet) Args() []string {
	if c.Keys.IsOne() {
		return appendEach([]string{"GET"}, c.Keys)
	}

	return appendEach([]string{"MGET"}, c.Keys)
}

func (c StringLen) Args() []string {
	return []string{"STRLEN", c.Key}
}

func (c Incr) Args() []string {
	if c.By == 1 {
		return []string{"INCR", c.Key}
	}

	return []string{"INCRBY", c.Key, itoa(c.By)}
}

func (c Decr) Args() []string {
	if c.By == 1 {
		return []string{"DECR", c.Key}
	}

	return []string{"DECRBY", c.Key, itoa(c.By)}
}

func (c Append) Args() []string {
	return []string{"APPEND", c.Key, c.Value}
}

func (StringSet) command() {}
func (StringGet) command() {}
func (StringLen) command() {}
func (Incr) command()      {}
func (Decr) command()      {}
func (Append) command()    {}
