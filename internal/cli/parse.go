// Package cli turns user input, such as command line arguments or a line
// typed in a console, into protocol commands.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/luma/respkit/protocol"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrArgCount       = errors.New("wrong number of arguments")
	ErrSyntax         = errors.New("syntax error")
)

type parser struct {
	// Argument count bounds, not counting the keyword. max < 0 means no
	// upper bound.
	min, max int

	parse func(args []string) (protocol.Command, error)
}

var parsers = map[string]parser{
	"KEYS":   {1, 1, func(a []string) (protocol.Command, error) { return protocol.Keys{Pattern: a[0]}, nil }},
	"DEL":    {1, -1, func(a []string) (protocol.Command, error) { return protocol.Del{Keys: arity(a)}, nil }},
	"EXISTS": {1, -1, func(a []string) (protocol.Command, error) { return protocol.Exists{Keys: arity(a)}, nil }},
	"ECHO":   {1, 1, func(a []string) (protocol.Command, error) { return protocol.Echo{Message: a[0]}, nil }},
	"AUTH":   {1, 2, parseAuth},
	"ACL":    {6, 6, parseACL},

	"SET":    {2, 5, parseSet},
	"MSET":   {2, -1, parseMSet(protocol.Always)},
	"MSETNX": {2, -1, parseMSet(protocol.IfNotExists)},
	"GET":    {1, 1, func(a []string) (protocol.Command, error) { return protocol.StringGet{Keys: protocol.One(a[0])}, nil }},
	"MGET":   {1, -1, func(a []string) (protocol.Command, error) { return protocol.StringGet{Keys: protocol.Many(a...)}, nil }},
	"STRLEN": {1, 1, func(a []string) (protocol.Command, error) { return protocol.StringLen{Key: a[0]}, nil }},
	"INCR":   {1, 1, func(a []string) (protocol.Command, error) { return protocol.Incr{Key: a[0], By: 1}, nil }},
	"DECR":   {1, 1, func(a []string) (protocol.Command, error) { return protocol.Decr{Key: a[0], By: 1}, nil }},
	"INCRBY": {2, 2, parseIncrBy},
	"DECRBY": {2, 2, parseDecrBy},
	"APPEND": {2, 2, func(a []string) (protocol.Command, error) { return protocol.Append{Key: a[0], Value: a[1]}, nil }},

	"LLEN":    {1, 1, func(a []string) (protocol.Command, error) { return protocol.ListLen{Key: a[0]}, nil }},
	"LPUSH":   {2, -1, parsePush(protocol.Left, protocol.Always)},
	"RPUSH":   {2, -1, parsePush(protocol.Right, protocol.Always)},
	"LPUSHX":  {2, -1, parsePush(protocol.Left, protocol.IfExists)},
	"RPUSHX":  {2, -1, parsePush(protocol.Right, protocol.IfExists)},
	"LPOP":    {1, 1, parsePop(protocol.Left)},
	"RPOP":    {1, 1, parsePop(protocol.Right)},
	"BLPOP":   {2, -1, parseBlockingPop(protocol.Left)},
	"BRPOP":   {2, -1, parseBlockingPop(protocol.Right)},
	"LREM":    {3, 3, parseListRem},
	"LINDEX":  {2, 2, parseListIndex},
	"LSET":    {3, 3, parseListSet},
	"LINSERT": {4, 4, parseListInsert},
	"LTRIM":   {3, 3, parseListTrim},
	"LRANGE":  {3, 3, parseListRange},

	"HDEL":    {2, -1, func(a []string) (protocol.Command, error) { return protocol.HashDel{Key: a[0], Fields: arity(a[1:])}, nil }},
	"HSET":    {3, -1, parseHashSet(protocol.Always)},
	"HSETNX":  {3, 3, parseHashSet(protocol.IfNotExists)},
	"HGET":    {2, 2, func(a []string) (protocol.Command, error) { return protocol.HashGet{Key: a[0], Fields: protocol.One(a[1])}, nil }},
	"HMGET":   {2, -1, func(a []string) (protocol.Command, error) { return protocol.HashGet{Key: a[0], Fields: protocol.Many(a[1:]...)}, nil }},
	"HGETALL": {1, 1, func(a []string) (protocol.Command, error) { return protocol.HashGet{Key: a[0]}, nil }},
	"HSTRLEN": {2, 2, func(a []string) (protocol.Command, error) { return protocol.HashStrLen{Key: a[0], Field: a[1]}, nil }},
	"HLEN":    {1, 1, func(a []string) (protocol.Command, error) { return protocol.HashLen{Key: a[0]}, nil }},
	"HINCRBY": {3, 3, parseHashIncr},
	"HKEYS":   {1, 1, func(a []string) (protocol.Command, error) { return protocol.HashKeys{Key: a[0]}, nil }},
	"HVALS":   {1, 1, func(a []string) (protocol.Command, error) { return protocol.HashVals{Key: a[0]}, nil }},
	"HEXISTS": {2, 2, func(a []string) (protocol.Command, error) { return protocol.HashExists{Key: a[0], Field: a[1]}, nil }},

	"SADD":      {2, -1, func(a []string) (protocol.Command, error) { return protocol.SetAdd{Key: a[0], Members: arity(a[1:])}, nil }},
	"SREM":      {2, -1, func(a []string) (protocol.Command, error) { return protocol.SetRem{Key: a[0], Members: arity(a[1:])}, nil }},
	"SCARD":     {1, 1, func(a []string) (protocol.Command, error) { return protocol.SetCard{Key: a[0]}, nil }},
	"SUNION":    {1, -1, func(a []string) (protocol.Command, error) { return protocol.SetUnion{Keys: arity(a)}, nil }},
	"SINTER":    {1, -1, func(a []string) (protocol.Command, error) { return protocol.SetInter{Keys: arity(a)}, nil }},
	"SDIFF":     {1, -1, func(a []string) (protocol.Command, error) { return protocol.SetDiff{Keys: arity(a)}, nil }},
	"SISMEMBER": {2, 2, func(a []string) (protocol.Command, error) { return protocol.SetIsMember{Key: a[0], Member: a[1]}, nil }},
	"SMEMBERS":  {1, 1, func(a []string) (protocol.Command, error) { return protocol.SetMembers{Key: a[0]}, nil }},
	"SPOP":      {1, 2, parseSetPop},
}

// Parse converts a keyword and its arguments into a Command. The keyword
// is case insensitive, arguments are taken as is.
func Parse(args []string) (protocol.Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrArgCount)
	}

	keyword := strings.ToUpper(args[0])

	p, ok := parsers[keyword]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, args[0])
	}

	rest := args[1:]
	if len(rest) < p.min || (p.max >= 0 && len(rest) > p.max) {
		return nil, fmt.Errorf("%w for %s: got %d", ErrArgCount, keyword, len(rest))
	}

	return p.parse(rest)
}

// Split breaks a console line into arguments on whitespace. Double quoted
// arguments may contain whitespace and the escapes understood by
// strconv.Unquote.
func Split(line string) ([]string, error) {
	var args []string

	for i := 0; i < len(line); {
		switch c := line[i]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++

		case c == '"':
			end := i + 1
			for end < len(line) && line[end] != '"' {
				if line[end] == '\\' {
					end++
				}
				end++
			}

			if end >= len(line) {
				return nil, fmt.Errorf("%w: unterminated quote", ErrSyntax)
			}

			arg, err := strconv.Unquote(line[i : end+1])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
			}

			args = append(args, arg)
			i = end + 1

		default:
			end := strings.IndexAny(line[i:], " \t\r\n")
			if end < 0 {
				end = len(line) - i
			}

			args = append(args, line[i:i+end])
			i += end
		}
	}

	return args, nil
}

func arity(args []string) protocol.Arity[string] {
	if len(args) == 1 {
		return protocol.One(args[0])
	}

	return protocol.Many(args...)
}

func pairs(args []string) (protocol.Arity[protocol.Pair], error) {
	if len(args)%2 != 0 {
		return protocol.Arity[protocol.Pair]{}, fmt.Errorf("%w: expected key value pairs", ErrArgCount)
	}

	out := make([]protocol.Pair, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		out = append(out, protocol.Pair{Key: args[i], Value: args[i+1]})
	}

	return protocol.Many(out...), nil
}

func integer(name, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer: %v", ErrSyntax, name, err)
	}

	return n, nil
}

func unsigned(name, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a positive integer: %v", ErrSyntax, name, err)
	}

	return n, nil
}

func parseAuth(a []string) (protocol.Command, error) {
	if len(a) == 1 {
		return protocol.Auth{Password: a[0]}, nil
	}

	return protocol.AuthUser{User: a[0], Password: a[1]}, nil
}

// parseACL only understands the one SETUSER shape that can be built.
func parseACL(a []string) (protocol.Command, error) {
	switch {
	case !strings.EqualFold(a[0], "SETUSER"):
		return nil, fmt.Errorf("%w: only ACL SETUSER is supported", ErrUnknownCommand)
	case !strings.EqualFold(a[2], "on"),
		!strings.HasPrefix(a[3], ">"),
		!strings.HasPrefix(a[4], "+"),
		!strings.HasPrefix(a[5], "~"):
		return nil, fmt.Errorf("%w: expected ACL SETUSER name on >password +commands ~keys", ErrSyntax)
	}

	return protocol.ACLSetUser{
		Name:     a[1],
		Password: a[3][1:],
		Commands: a[4][1:],
		Keys:     a[5][1:],
	}, nil
}

func parseSet(a []string) (protocol.Command, error) {
	cmd := protocol.StringSet{Values: protocol.One(protocol.Pair{Key: a[0], Value: a[1]})}

	for i := 2; i < len(a); i++ {
		switch strings.ToUpper(a[i]) {
		case "PX", "EX":
			if i+1 >= len(a) {
				return nil, fmt.Errorf("%w: %s needs a value", ErrSyntax, a[i])
			}

			n, err := unsigned(a[i], a[i+1])
			if err != nil {
				return nil, err
			}

			unit := time.Millisecond
			if strings.EqualFold(a[i], "EX") {
				unit = time.Second
			}

			cmd.Expiry = time.Duration(n) * unit
			i++

		case "NX":
			cmd.Insertion = protocol.IfNotExists

		case "XX":
			cmd.Insertion = protocol.IfExists

		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, a[i])
		}
	}

	return cmd, nil
}

func parseMSet(insertion protocol.Insertion) func([]string) (protocol.Command, error) {
	return func(a []string) (protocol.Command, error) {
		values, err := pairs(a)
		if err != nil {
			return nil, err
		}

		return protocol.StringSet{Values: values, Insertion: insertion}, nil
	}
}

func parseIncrBy(a []string) (protocol.Command, error) {
	n, err := integer("increment", a[1])
	if err != nil {
		return nil, err
	}

	return protocol.Incr{Key: a[0], By: n}, nil
}

func parseDecrBy(a []string) (protocol.Command, error) {
	n, err := integer("decrement", a[1])
	if err != nil {
		return nil, err
	}

	return protocol.Decr{Key: a[0], By: n}, nil
}

func parsePush(side protocol.Side, insertion protocol.Insertion) func([]string) (protocol.Command, error) {
	return func(a []string) (protocol.Command, error) {
		return protocol.ListPush{Side: side, Insertion: insertion, Key: a[0], Values: arity(a[1:])}, nil
	}
}

func parsePop(side protocol.Side) func([]string) (protocol.Command, error) {
	return func(a []string) (protocol.Command, error) {
		return protocol.ListPop{Side: side, Key: a[0]}, nil
	}
}

func parseBlockingPop(side protocol.Side) func([]string) (protocol.Command, error) {
	return func(a []string) (protocol.Command, error) {
		last := len(a) - 1

		timeout, err := unsigned("timeout", a[last])
		if err != nil {
			return nil, err
		}

		return protocol.ListPop{
			Side: side,
			Key:  a[0],
			Block: &protocol.Blocking{
				Others:  protocol.Many(a[1:last]...),
				Timeout: timeout,
			},
		}, nil
	}
}

func parseListRem(a []string) (protocol.Command, error) {
	count, err := integer("count", a[1])
	if err != nil {
		return nil, err
	}

	return protocol.ListRem{Key: a[0], Count: count, Value: a[2]}, nil
}

func parseListIndex(a []string) (protocol.Command, error) {
	index, err := integer("index", a[1])
	if err != nil {
		return nil, err
	}

	return protocol.ListIndex{Key: a[0], Index: index}, nil
}

func parseListSet(a []string) (protocol.Command, error) {
	index, err := integer("index", a[1])
	if err != nil {
		return nil, err
	}

	return protocol.ListSet{Key: a[0], Index: index, Value: a[2]}, nil
}

func parseListInsert(a []string) (protocol.Command, error) {
	var side protocol.Side

	switch strings.ToUpper(a[1]) {
	case "BEFORE":
		side = protocol.Left
	case "AFTER":
		side = protocol.Right
	default:
		return nil, fmt.Errorf("%w: expected BEFORE or AFTER, got %q", ErrSyntax, a[1])
	}

	return protocol.ListInsert{Key: a[0], Side: side, Pivot: a[2], Value: a[3]}, nil
}

func parseRange(a []string) (int64, int64, error) {
	start, err := integer("start", a[1])
	if err != nil {
		return 0, 0, err
	}

	stop, err := integer("stop", a[2])
	if err != nil {
		return 0, 0, err
	}

	return start, stop, nil
}

func parseListTrim(a []string) (protocol.Command, error) {
	start, stop, err := parseRange(a)
	if err != nil {
		return nil, err
	}

	return protocol.ListTrim{Key: a[0], Start: start, Stop: stop}, nil
}

func parseListRange(a []string) (protocol.Command, error) {
	start, stop, err := parseRange(a)
	if err != nil {
		return nil, err
	}

	return protocol.ListRange{Key: a[0], Start: start, Stop: stop}, nil
}

func parseHashSet(insertion protocol.Insertion) func([]string) (protocol.Command, error) {
	return func(a []string) (protocol.Command, error) {
		fields, err := pairs(a[1:])
		if err != nil {
			return nil, err
		}

		if fields.Len() == 1 {
			fields = protocol.One(protocol.Pair{Key: a[1], Value: a[2]})
		}

		return protocol.HashSet{Key: a[0], Fields: fields, Insertion: insertion}, nil
	}
}

func parseHashIncr(a []string) (protocol.Command, error) {
	n, err := integer("increment", a[2])
	if err != nil {
		return nil, err
	}

	return protocol.HashIncr{Key: a[0], Field: a[1], By: n}, nil
}

func parseSetPop(a []string) (protocol.Command, error) {
	cmd := protocol.SetPop{Key: a[0], Count: 1}

	if len(a) == 2 {
		n, err := unsigned("count", a[1])
		if err != nil {
			return nil, err
		}

		cmd.Count = n
	}

	return cmd, nil
}
