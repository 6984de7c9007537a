package protocol

type SetAdd struct {
	Key     string
	Members Arity[string]
}

type SetRem struct {
	Key     string
	Members Arity[string]
}

type SetCard struct {
	Key string
}

type SetUnion struct {
	Keys Arity[string]
}

type SetInter struct {
	Keys Arity[string]
}

type SetDiff struct {
	Keys Arity[string]
}

type SetIsMember struct {
	Key    string
	Member string
}

type SetMembers struct {
	Key string
}

// SetPop removes Count random members. A Count of 1 pops a single member
// and leaves the count off the wire, any other Count is sent as given.
type SetPop struct {
	Key   string
	Count uint64
}

func (c SetAdd) Args() []string {
	return appendEach([]string{"SADD", c.Key}, c.Members)
}

func (c SetRem) Args() []string {
	return appendEach([]string{"SREM", c.Key}, c.Members)
}

func (c SetCard) Args() []string {
	return []string{"SCARD", c.Key}
}

func (c SetUnion) Args() []string {
	return appendEach([]string{"SUNION"}, c.Keys)
}

func (c SetInter) Args() []string {
	return appendEach([]string{"SINTER"}, c.Keys)
}

func (c SetDiff) Args() []string {
	return appendEach([]string{"SDIFF"}, c.Keys)
}

func (c SetIsMember) Args() []string {
	return []string{"SISMEMBER", c.Key, c.Member}
}

func (c SetMembers) Args() []string {
	return []string{"SMEMBERS", c.Key}
}

func (c SetPop) Args() []string {
	if c.Count == 1 {
		return []string{"SPOP", c.Key}
	}

	return []string{"SPOP", c.Key, utoa(c.Count)}
}

func (SetAdd) command()      {}
func (SetRem) command()      {}
func (SetCard) command()     {}
func (SetUnion) command()    {}
func (SetInter) command()    {}
func (SetDiff) command()     {}
func (SetIsMember) command() {}
func (SetMembers) command()  {}
func (SetPop) command()      {}
