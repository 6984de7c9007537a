package protocol

// HashDel removes Fields from the hash at Key.
type HashDel struct {
	Key    string
	Fields Arity[string]
}

// HashSet assigns Fields in the hash at Key. IfNotExists selects HSETNX.
type HashSet struct {
	Key       string
	Fields    Arity[Pair]
	Insertion Insertion
}

// HashGet reads from the hash at Key. A single field is HGET, many fields is
// HMGET and no fields at all reads the whole hash with HGETALL.
type HashGet struct {
	Key    string
	Fields Arity[string]
}

// HashStrLen returns the length of the value of Field.
type HashStrLen struct {
	Key   string
	Field string
}

// HashLen returns the number of fields in the hash at Key.
type HashLen struct {
	Key string
}

// HashIncr increments Field by By.
type HashIncr struct {
	Key   string
	Field string
	By    int64
}

// HashKeys returns every field name in the hash at Key.
type HashKeys struct {
	Key string
}

// HashVals returns every value in the hash at Key.
type HashVals struct {
	Key string
}

// HashExists reports whether Field exists in the hash at Key.
type HashExists struct {
	Key   string
	Field string
}

func (c HashDel) Args() []string {
	return appendEach([]string{"HDEL", c.Key}, c.Fields)
}

func (c HashSet) Args() []string {
	keyword := "HSET"
	if c.Insertion == IfNotExists {
		keyword = "HSETNX"
	}

	return appendPairs([]string{keyword, c.Key}, c.Fields)
}

func (c HashGet) Args() []string {
	switch {
	case c.Fields.Len() == 0:
		return []string{"HGETALL", c.Key}
	case c.Fields.IsOne():
		return appendEach([]string{"HGET", c.Key}, c.Fields)
	default:
		return appendEach([]string{"HMGET", c.Key}, c.Fields)
	}
}

func (c HashStrLen) Args() []string {
	return []string{"HSTRLEN", c.Key, c.Field}
}

func (c HashLen) Args() []string {
	return []string{"HLEN", c.Key}
}

func (c HashIncr) Args() []string {
	return []string{"HINCRBY", c.Key, c.Field, itoa(c.By)}
}

func (c HashKeys) Args() []string {
	return []string{"HKEYS", c.Key}
}

func (c HashVals) Args() []string {
	return []string{"HVALS", c.Key}
}

func (c HashExists) Args() []string {
	return []string{"HEXISTS", c.Key, c.Field}
}

func (HashDel) command()    {}
func (HashSet) command()    {}
func (HashGet) command()    {}
func (HashStrLen) command() {}
func (HashLen) command()    {}
func (HashIncr) command()   {}
func (HashKeys) command()   {}
func (HashVals) command()   {}
func (HashExists) command() {}
