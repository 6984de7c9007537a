package resptest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/luma/respkit/protocol"
)

var errNotObject = errors.New("a keyspace snapshot must be a JSON object")

var (
	wrongType  = protocol.ErrorReply("WRONGTYPE Operation against a key holding the wrong kind of value")
	notInteger = protocol.ErrorReply("ERR value is not an integer or out of range")
	syntax     = protocol.ErrorReply("ERR syntax error")
)

// Keyspace is a small in-memory dataset answering the string, list and hash
// commands, so a Server can stand in for a real one. The whole dataset is a
// single JSON document: strings are JSON strings, lists arrays of strings
// and hashes objects.
//
// Blocking pops answer at once, with a nil array when every list is empty.
// Keys holding * or ? are refused.
type Keyspace struct {
	mu     sync.Mutex
	values []byte
}

func NewKeyspace() *Keyspace {
	return &Keyspace{
		values: []byte("{}"),
	}
}

// Restore replaces the dataset with a JSON object such as
// {"queue":["a","b"],"user:1":{"name":"ann"}}.
func (k *Keyspace) Restore(values []byte) error {
	if !gjson.ValidBytes(values) || !gjson.ParseBytes(values).IsObject() {
		return errNotObject
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.values = append([]byte(nil), values...)
	return nil
}

// Snapshot returns a copy of the dataset as a JSON object.
func (k *Keyspace) Snapshot() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()

	return append([]byte(nil), k.values...)
}

// Handle answers one request, it is a Handler.
func (k *Keyspace) Handle(args []string) protocol.Response {
	if len(args) == 0 {
		return protocol.ErrorReply("ERR empty request")
	}

	name := strings.ToUpper(args[0])

	command, ok := keyspaceCommands[name]
	if !ok {
		return protocol.ErrorReply(fmt.Sprintf("ERR unknown command '%s'", args[0]))
	}

	args = args[1:]
	if len(args) < command.min || (command.step > 0 && (len(args)-command.min)%command.step != 0) {
		return protocol.ErrorReply(fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(name)))
	}

	for _, key := range command.keys(args) {
		if strings.ContainsAny(key, "*?") {
			return protocol.ErrorReply("ERR wildcard keys are not supported")
		}
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return command.run(k, args)
}

type keyspaceCommand struct {
	// min arguments after the keyword, with step set the rest must come in
	// groups of step
	min, step int
	keys      func(args []string) []string
	run       func(k *Keyspace, args []string) protocol.Response
}

func none([]string) []string       { return nil }
func first(args []string) []string { return args[:1] }
func all(args []string) []string   { return args }

// All but the trailing timeout
func allButLast(args []string) []string { return args[:len(args)-1] }

var keyspaceCommands map[string]keyspaceCommand

func init() {
	keyspaceCommands = map[string]keyspaceCommand{
		"PING": {0, 0, none, func(*Keyspace, []string) protocol.Response { return protocol.Status("PONG") }},
		"ECHO": {1, 0, none, func(_ *Keyspace, a []string) protocol.Response { return protocol.BulkString(a[0]) }},

		"DEL":    {1, 0, all, (*Keyspace).del},
		"EXISTS": {1, 0, all, (*Keyspace).exists},

		"GET":    {1, 0, first, (*Keyspace).get},
		"SET":    {2, 0, first, (*Keyspace).set},
		"APPEND": {2, 0, first, (*Keyspace).appendString},
		"INCR":   {1, 0, first, func(k *Keyspace, a []string) protocol.Response { return k.incr(a[0], 1) }},
		"DECR":   {1, 0, first, func(k *Keyspace, a []string) protocol.Response { return k.incr(a[0], -1) }},
		"INCRBY": {2, 0, first, incrBy(1)},
		"DECRBY": {2, 0, first, incrBy(-1)},

		"LPUSH":  {2, 0, first, push(true, false)},
		"RPUSH":  {2, 0, first, push(false, false)},
		"LPUSHX": {2, 0, first, push(true, true)},
		"RPUSHX": {2, 0, first, push(false, true)},
		"LPOP":   {1, 0, first, func(k *Keyspace, a []string) protocol.Response { return k.pop(a[0], true) }},
		"RPOP":   {1, 0, first, func(k *Keyspace, a []string) protocol.Response { return k.pop(a[0], false) }},
		"BLPOP":  {2, 0, allButLast, blockingPop(true)},
		"BRPOP":  {2, 0, allButLast, blockingPop(false)},
		"LLEN":   {1, 0, first, (*Keyspace).llen},
		"LRANGE": {3, 0, first, (*Keyspace).lrange},

		"HSET":    {3, 2, first, (*Keyspace).hset},
		"HGET":    {2, 0, first, (*Keyspace).hget},
		"HGETALL": {1, 0, first, (*Keyspace).hgetall},
		"HDEL":    {2, 0, first, (*Keyspace).hdel},
		"HLEN":    {1, 0, first, (*Keyspace).hlen},
	}
}

// gjson and sjson read dots and a few other characters as path syntax
func path(key string) string {
	var sb strings.Builder

	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '\\', '|', '#', '@', '!', '=', '<', '>', '%':
			sb.WriteByte('\\')
		}

		sb.WriteByte(key[i])
	}

	return sb.String()
}

func (k *Keyspace) lookup(key string) gjson.Result {
	return gjson.GetBytes(k.values, path(key))
}

func (k *Keyspace) store(key string, value interface{}) {
	values, err := sjson.SetBytes(k.values, path(key), value)
	if err != nil {
		panic(fmt.Sprintf("resptest: store %q: %v", key, err))
	}

	k.values = values
}

func (k *Keyspace) remove(key string) {
	values, err := sjson.DeleteBytes(k.values, path(key))
	if err != nil {
		panic(fmt.Sprintf("resptest: remove %q: %v", key, err))
	}

	k.values = values
}

func (k *Keyspace) del(keys []string) protocol.Response {
	var n int64

	for _, key := range keys {
		if k.lookup(key).Exists() {
			k.remove(key)
			n++
		}
	}

	return protocol.Integer(n)
}

func (k *Keyspace) exists(keys []string) protocol.Response {
	var n int64

	for _, key := range keys {
		if k.lookup(key).Exists() {
			n++
		}
	}

	return protocol.Integer(n)
}

func (k *Keyspace) get(args []string) protocol.Response {
	value := k.lookup(args[0])

	switch {
	case !value.Exists():
		return protocol.NilBulk()
	case value.Type != gjson.String:
		return wrongType
	}

	return protocol.BulkString(value.Str)
}

func (k *Keyspace) set(args []string) protocol.Response {
	key, value := args[0], args[1]
	exists := k.lookup(key).Exists()

	for i := 2; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "NX":
			if exists {
				return protocol.NilBulk()
			}
		case "XX":
			if !exists {
				return protocol.NilBulk()
			}
		case "EX", "PX":
			// Expiry is accepted and ignored
			i++
			if i == len(args) {
				return syntax
			}
		default:
			return syntax
		}
	}

	k.store(key, value)
	return protocol.Status("OK")
}

func (k *Keyspace) appendString(args []string) protocol.Response {
	value := k.lookup(args[0])
	if value.Exists() && value.Type != gjson.String {
		return wrongType
	}

	s := value.Str + args[1]
	k.store(args[0], s)

	return protocol.Integer(int64(len(s)))
}

func incrBy(sign int64) func(k *Keyspace, args []string) protocol.Response {
	return func(k *Keyspace, args []string) protocol.Response {
		by, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return notInteger
		}

		return k.incr(args[0], sign*by)
	}
}

func (k *Keyspace) incr(key string, by int64) protocol.Response {
	var n int64

	value := k.lookup(key)
	if value.Exists() {
		if value.Type != gjson.String {
			return wrongType
		}

		var err error
		if n, err = strconv.ParseInt(value.Str, 10, 64); err != nil {
			return notInteger
		}
	}

	n += by
	k.store(key, strconv.FormatInt(n, 10))

	return protocol.Integer(n)
}

// list returns the list at key, ok is false when the key holds something
// else
func (k *Keyspace) list(key string) (items []string, exists, ok bool) {
	value := k.lookup(key)
	if !value.Exists() {
		return nil, false, true
	}

	if !value.IsArray() {
		return nil, true, false
	}

	for _, item := range value.Array() {
		items = append(items, item.Str)
	}

	return items, true, true
}

func (k *Keyspace) storeList(key string, items []string) {
	if len(items) == 0 {
		k.remove(key)
		return
	}

	k.store(key, items)
}

func push(left, onlyIfExists bool) func(k *Keyspace, args []string) protocol.Response {
	return func(k *Keyspace, args []string) protocol.Response {
		items, exists, ok := k.list(args[0])
		switch {
		case !ok:
			return wrongType
		case onlyIfExists && !exists:
			return protocol.Integer(0)
		}

		for _, value := range args[1:] {
			if left {
				items = append([]string{value}, items...)
			} else {
				items = append(items, value)
			}
		}

		k.storeList(args[0], items)
		return protocol.Integer(int64(len(items)))
	}
}

func (k *Keyspace) pop(key string, left bool) protocol.Response {
	items, _, ok := k.list(key)
	switch {
	case !ok:
		return wrongType
	case len(items) == 0:
		return protocol.NilBulk()
	}

	var value string
	if left {
		value, items = items[0], items[1:]
	} else {
		value, items = items[len(items)-1], items[:len(items)-1]
	}

	k.storeList(key, items)
	return protocol.BulkString(value)
}

func blockingPop(left bool) func(k *Keyspace, args []string) protocol.Response {
	return func(k *Keyspace, args []string) protocol.Response {
		if _, err := strconv.ParseFloat(args[len(args)-1], 64); err != nil {
			return protocol.ErrorReply("ERR timeout is not a float or out of range")
		}

		for _, key := range args[:len(args)-1] {
			resp := k.pop(key, left)
			if resp.Kind == protocol.KindError {
				return resp
			}

			if !resp.IsNil() {
				return protocol.Array(protocol.BulkString(key), resp)
			}
		}

		return protocol.NilArray()
	}
}

func (k *Keyspace) llen(args []string) protocol.Response {
	items, _, ok := k.list(args[0])
	if !ok {
		return wrongType
	}

	return protocol.Integer(int64(len(items)))
}

func (k *Keyspace) lrange(args []string) protocol.Response {
	start, err := strconv.Atoi(args[1])
	if err != nil {
		return notInteger
	}

	stop, err := strconv.Atoi(args[2])
	if err != nil {
		return notInteger
	}

	items, _, ok := k.list(args[0])
	if !ok {
		return wrongType
	}

	if start < 0 {
		start += len(items)
	}

	if stop < 0 {
		stop += len(items)
	}

	if start < 0 {
		start = 0
	}

	if stop >= len(items) {
		stop = len(items) - 1
	}

	elements := []protocol.Response{}
	for i := start; i <= stop; i++ {
		elements = append(elements, protocol.BulkString(items[i]))
	}

	return protocol.Array(elements...)
}

func (k *Keyspace) hash(key string) (gjson.Result, bool) {
	value := k.lookup(key)
	if value.Exists() && !value.IsObject() {
		return value, false
	}

	return value, true
}

func (k *Keyspace) hset(args []string) protocol.Response {
	value, ok := k.hash(args[0])
	if !ok {
		return wrongType
	}

	if !value.Exists() {
		k.store(args[0], map[string]string{})
	}

	var added int64
	for i := 1; i < len(args); i += 2 {
		field := path(args[0]) + "." + path(args[i])

		if !gjson.GetBytes(k.values, field).Exists() {
			added++
		}

		values, err := sjson.SetBytes(k.values, field, args[i+1])
		if err != nil {
			panic(fmt.Sprintf("resptest: hset %q: %v", field, err))
		}

		k.values = values
	}

	return protocol.Integer(added)
}

func (k *Keyspace) hget(args []string) protocol.Response {
	value, ok := k.hash(args[0])
	if !ok {
		return wrongType
	}

	field := value.Get(path(args[1]))
	if !field.Exists() {
		return protocol.NilBulk()
	}

	return protocol.BulkString(field.Str)
}

func (k *Keyspace) hgetall(args []string) protocol.Response {
	value, ok := k.hash(args[0])
	if !ok {
		return wrongType
	}

	elements := []protocol.Response{}
	value.ForEach(func(field, v gjson.Result) bool {
		elements = append(elements, protocol.BulkString(field.Str), protocol.BulkString(v.Str))
		return true
	})

	return protocol.Array(elements...)
}

func (k *Keyspace) hdel(args []string) protocol.Response {
	if _, ok := k.hash(args[0]); !ok {
		return wrongType
	}

	var n int64
	for _, field := range args[1:] {
		field := path(args[0]) + "." + path(field)
		if !gjson.GetBytes(k.values, field).Exists() {
			continue
		}

		values, err := sjson.DeleteBytes(k.values, field)
		if err != nil {
			panic(fmt.Sprintf("resptest: hdel %q: %v", field, err))
		}

		k.values = values
		n++
	}

	if n > 0 && len(k.lookup(args[0]).Map()) == 0 {
		k.remove(args[0])
	}

	return protocol.Integer(n)
}

func (k *Keyspace) hlen(args []string) protocol.Response {
	value, ok := k.hash(args[0])
	if !ok {
		return wrongType
	}

	return protocol.Integer(int64(len(value.Map())))
}
