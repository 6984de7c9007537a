package protocol

// ListLen returns the length of the list at Key.
type ListLen struct {
	Key string
}

// ListPush pushes Values onto one end of the list at Key.
//
// IfExists selects the X variants (LPUSHX, RPUSHX). The server has no
// "only if absent" push, so IfNotExists pushes unconditionally.
type ListPush struct {
	Side      Side
	Insertion Insertion
	Key       string
	Values    Arity[string]
}

// Blocking turns a pop into its blocking form. Others are additional lists
// to wait on after the primary key. Timeout is in seconds, zero waits forever.
//
// The timeout is enforced by the server, not by this package.
type Blocking struct {
	Others  Arity[string]
	Timeout uint64
}

// ListPop removes an element from one end of the list at Key. When Block is
// set the pop becomes BLPOP/BRPOP.
type ListPop struct {
	Side  Side
	Key   string
	Block *Blocking
}

// ListRem removes Count occurrences of Value from the list at Key.
type ListRem struct {
	Key   string
	Value string
	Count int64
}

// ListIndex returns the element at Index.
type ListIndex struct {
	Key   string
	Index int64
}

// ListSet replaces the element at Index.
type ListSet struct {
	Key   string
	Index int64
	Value string
}

// ListInsert inserts Value next to Pivot, before it for Left and after it
// for Right.
type ListInsert struct {
	Key   string
	Side  Side
	Pivot string
	Value string
}

// ListTrim trims the list at Key to the inclusive range [Start, Stop].
type ListTrim struct {
	Key   string
	Start int64
	Stop  int64
}

// ListRange returns the inclusive range [Start, Stop] of the list at Key.
type ListRange struct {
	Key   string
	Start int64
	Stop  int64
}

func (c ListLen) Args() []string {
	return []string{"LLEN", c.Key}
}

func (c ListPush) Args() []string {
	keyword := "LPUSH"
	if c.Side == Right {
		keyword = "RPUSH"
	}

	if c.Insertion == IfExists {
		keyword += "X"
	}

	return appendEach([]string{keyword, c.Key}, c.Values)
}

func (c ListPop) Args() []string {
	keyword := "LPOP"
	if c.Side == Right {
		keyword = "RPOP"
	}

	if c.Block == nil {
		return []string{keyword, c.Key}
	}

	args := appendEach([]string{"B" + keyword, c.Key}, c.Block.Others)

	return append(args, utoa(c.Block.Timeout))
}

func (c ListRem) Args() []string {
	return []string{"LREM", c.Key, itoa(c.Count), c.Value}
}

func (c ListIndex) Args() []string {
	return []string{"LINDEX", c.Key, itoa(c.Index)}
}

func (c ListSet) Args() []string {
	return []string{"LSET", c.Key, itoa(c.Index), c.Value}
}

func (c ListInsert) Args() []string {
	where := "BEFORE"
	if c.Side == Right {
		where = "AFTER"
	}

	return []string{"LINSERT", c.Key, where, c.Pivot, c.Value}
}

func (c ListTrim) Args() []string {
	return []string{"LTRIM", c.Key, itoa(c.Start), itoa(c.Stop)}
}

func (c ListRange) Args() []string {
	return []string{"LRANGE", c.Key, itoa(c.Start), itoa(c.Stop)}
}

func (ListLen) command()    {}
func (ListPush) command()   {}
func (ListPop) command()    {}
func (ListRem) command()    {}
func (ListIndex) command()  {}
func (ListSet) command()    {}
func (ListInsert) command() {}
func (ListTrim) command()   {}
func (ListRange) command()  {}
