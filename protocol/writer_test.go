package protocol_test

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/luma/respkit/protocol"
)

var _ = Describe("Writer", func() {
	DescribeTable("Encode",
		func(cmd protocol.Command, expected string) {
			Expect(string(protocol.Encode(cmd))).To(Equal(expected))
		},

		Entry("KEYS", protocol.Keys{Pattern: "*"},
			"*2\r\n$4\r\nKEYS\r\n$1\r\n*\r\n"),
		Entry("DEL one", protocol.Del{Keys: protocol.One("kramer")},
			"*2\r\n$3\r\nDEL\r\n$6\r\nkramer\r\n"),
		Entry("DEL many", protocol.Del{Keys: protocol.Many("kramer", "jerry")},
			"*3\r\n$3\r\nDEL\r\n$6\r\nkramer\r\n$5\r\njerry\r\n"),
		Entry("EXISTS many", protocol.Exists{Keys: protocol.Many("a", "b")},
			"*3\r\n$6\r\nEXISTS\r\n$1\r\na\r\n$1\r\nb\r\n"),
		Entry("ECHO", protocol.Echo{Message: "hello"},
			"*2\r\n$4\r\nECHO\r\n$5\r\nhello\r\n"),
		Entry("AUTH password", protocol.Auth{Password: "hello-world"},
			"*2\r\n$4\r\nAUTH\r\n$11\r\nhello-world\r\n"),
		Entry("AUTH user", protocol.AuthUser{User: "kramer", Password: "hello-world"},
			"*3\r\n$4\r\nAUTH\r\n$6\r\nkramer\r\n$11\r\nhello-world\r\n"),
		Entry("ACL SETUSER", protocol.ACLSetUser{Name: "library-member", Password: "many-books", Commands: "hgetall", Keys: "books"},
			"*7\r\n$3\r\nACL\r\n$7\r\nSETUSER\r\n$14\r\nlibrary-member\r\n$2\r\non\r\n$11\r\n>many-books\r\n$8\r\n+hgetall\r\n$6\r\n~books\r\n"),

		Entry("SET", protocol.StringSet{Values: protocol.One(protocol.Pair{Key: "seinfeld", Value: "kramer"})},
			"*3\r\n$3\r\nSET\r\n$8\r\nseinfeld\r\n$6\r\nkramer\r\n"),
		Entry("SET PX", protocol.StringSet{Values: protocol.One(protocol.Pair{Key: "seinfeld", Value: "kramer"}), Expiry: time.Second},
			"*5\r\n$3\r\nSET\r\n$8\r\nseinfeld\r\n$6\r\nkramer\r\n$2\r\nPX\r\n$4\r\n1000\r\n"),
		Entry("SET NX", protocol.StringSet{Values: protocol.One(protocol.Pair{Key: "seinfeld", Value: "kramer"}), Insertion: protocol.IfNotExists},
			"*4\r\n$3\r\nSET\r\n$8\r\nseinfeld\r\n$6\r\nkramer\r\n$2\r\nNX\r\n"),
		Entry("SET PX XX", protocol.StringSet{Values: protocol.One(protocol.Pair{Key: "k", Value: "v"}), Expiry: 1500 * time.Millisecond, Insertion: protocol.IfExists},
			"*6\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n$2\r\nPX\r\n$4\r\n1500\r\n$2\r\nXX\r\n"),
		Entry("SET PX under a millisecond", protocol.StringSet{Values: protocol.One(protocol.Pair{Key: "k", Value: "v"}), Expiry: 500 * time.Microsecond},
			"*5\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n$2\r\nPX\r\n$1\r\n1\r\n"),
		Entry("SET PX rounds up", protocol.StringSet{Values: protocol.One(protocol.Pair{Key: "k", Value: "v"}), Expiry: 1500 * time.Microsecond},
			"*5\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n$2\r\nPX\r\n$1\r\n2\r\n"),
		Entry("MSET", protocol.StringSet{Values: protocol.Many(protocol.Pair{Key: "name", Value: "kramer"}, protocol.Pair{Key: "friend", Value: "jerry"})},
			"*5\r\n$4\r\nMSET\r\n$4\r\nname\r\n$6\r\nkramer\r\n$6\r\nfriend\r\n$5\r\njerry\r\n"),
		Entry("MSETNX", protocol.StringSet{Values: protocol.Many(protocol.Pair{Key: "name", Value: "kramer"}), Insertion: protocol.IfNotExists, Expiry: time.Second},
			"*3\r\n$6\r\nMSETNX\r\n$4\r\nname\r\n$6\r\nkramer\r\n"),
		Entry("GET", protocol.StringGet{Keys: protocol.One("seinfeld")},
			"*2\r\n$3\r\nGET\r\n$8\r\nseinfeld\r\n"),
		Entry("MGET", protocol.StringGet{Keys: protocol.Many("a", "b")},
			"*3\r\n$4\r\nMGET\r\n$1\r\na\r\n$1\r\nb\r\n"),
		Entry("STRLEN", protocol.StringLen{Key: "seinfeld"},
			"*2\r\n$6\r\nSTRLEN\r\n$8\r\nseinfeld\r\n"),
		Entry("INCR", protocol.Incr{Key: "n", By: 1},
			"*2\r\n$4\r\nINCR\r\n$1\r\nn\r\n"),
		Entry("INCRBY", protocol.Incr{Key: "n", By: -3},
			"*3\r\n$6\r\nINCRBY\r\n$1\r\nn\r\n$2\r\n-3\r\n"),
		Entry("DECR", protocol.Decr{Key: "one", By: 1},
			"*2\r\n$4\r\nDECR\r\n$3\r\none\r\n"),
		Entry("DECRBY", protocol.Decr{Key: "one", By: 10},
			"*3\r\n$6\r\nDECRBY\r\n$3\r\none\r\n$2\r\n10\r\n"),
		Entry("APPEND", protocol.Append{Key: "seinfeld", Value: "kramer"},
			"*3\r\n$6\r\nAPPEND\r\n$8\r\nseinfeld\r\n$6\r\nkramer\r\n"),

		Entry("LLEN", protocol.ListLen{Key: "kramer"},
			"*2\r\n$4\r\nLLEN\r\n$6\r\nkramer\r\n"),
		Entry("LPUSH", protocol.ListPush{Side: protocol.Left, Key: "seinfeld", Values: protocol.Many("kramer")},
			"*3\r\n$5\r\nLPUSH\r\n$8\r\nseinfeld\r\n$6\r\nkramer\r\n"),
		Entry("RPUSH many", protocol.ListPush{Side: protocol.Right, Key: "seinfeld", Values: protocol.Many("kramer", "jerry")},
			"*4\r\n$5\r\nRPUSH\r\n$8\r\nseinfeld\r\n$6\r\nkramer\r\n$5\r\njerry\r\n"),
		Entry("LPUSHX", protocol.ListPush{Side: protocol.Left, Insertion: protocol.IfExists, Key: "k", Values: protocol.One("v")},
			"*3\r\n$6\r\nLPUSHX\r\n$1\r\nk\r\n$1\r\nv\r\n"),
		Entry("RPUSHX", protocol.ListPush{Side: protocol.Right, Insertion: protocol.IfExists, Key: "seinfeld", Values: protocol.One("kramer")},
			"*3\r\n$6\r\nRPUSHX\r\n$8\r\nseinfeld\r\n$6\r\nkramer\r\n"),
		Entry("RPUSH if not exists", protocol.ListPush{Side: protocol.Right, Insertion: protocol.IfNotExists, Key: "k", Values: protocol.One("v")},
			"*3\r\n$5\r\nRPUSH\r\n$1\r\nk\r\n$1\r\nv\r\n"),
		Entry("LPOP", protocol.ListPop{Side: protocol.Left, Key: "seinfeld"},
			"*2\r\n$4\r\nLPOP\r\n$8\r\nseinfeld\r\n"),
		Entry("RPOP", protocol.ListPop{Side: protocol.Right, Key: "seinfeld"},
			"*2\r\n$4\r\nRPOP\r\n$8\r\nseinfeld\r\n"),
		Entry("BRPOP", protocol.ListPop{Side: protocol.Right, Key: "seinfeld", Block: &protocol.Blocking{Timeout: 10}},
			"*3\r\n$5\r\nBRPOP\r\n$8\r\nseinfeld\r\n$2\r\n10\r\n"),
		Entry("BLPOP one other", protocol.ListPop{Side: protocol.Left, Key: "seinfeld", Block: &protocol.Blocking{Others: protocol.One("derry-girls"), Timeout: 10}},
			"*4\r\n$5\r\nBLPOP\r\n$8\r\nseinfeld\r\n$11\r\nderry-girls\r\n$2\r\n10\r\n"),
		Entry("BLPOP many others", protocol.ListPop{Side: protocol.Left, Key: "seinfeld", Block: &protocol.Blocking{Others: protocol.Many("derry-girls", "creek"), Timeout: 10}},
			"*5\r\n$5\r\nBLPOP\r\n$8\r\nseinfeld\r\n$11\r\nderry-girls\r\n$5\r\ncreek\r\n$2\r\n10\r\n"),
		Entry("BRPOP forever", protocol.ListPop{Side: protocol.Right, Key: "k", Block: &protocol.Blocking{}},
			"*3\r\n$5\r\nBRPOP\r\n$1\r\nk\r\n$1\r\n0\r\n"),
		Entry("LREM", protocol.ListRem{Key: "episodes", Value: "10", Count: 100},
			"*4\r\n$4\r\nLREM\r\n$8\r\nepisodes\r\n$3\r\n100\r\n$2\r\n10\r\n"),
		Entry("LINDEX", protocol.ListIndex{Key: "episodes", Index: 1},
			"*3\r\n$6\r\nLINDEX\r\n$8\r\nepisodes\r\n$1\r\n1\r\n"),
		Entry("LSET", protocol.ListSet{Key: "episodes", Index: 1, Value: "pilot"},
			"*4\r\n$4\r\nLSET\r\n$8\r\nepisodes\r\n$1\r\n1\r\n$5\r\npilot\r\n"),
		Entry("LINSERT BEFORE", protocol.ListInsert{Key: "episodes", Side: protocol.Left, Pivot: "10", Value: "9"},
			"*5\r\n$7\r\nLINSERT\r\n$8\r\nepisodes\r\n$6\r\nBEFORE\r\n$2\r\n10\r\n$1\r\n9\r\n"),
		Entry("LINSERT AFTER", protocol.ListInsert{Key: "episodes", Side: protocol.Right, Pivot: "10", Value: "11"},
			"*5\r\n$7\r\nLINSERT\r\n$8\r\nepisodes\r\n$5\r\nAFTER\r\n$2\r\n10\r\n$2\r\n11\r\n"),
		Entry("LTRIM", protocol.ListTrim{Key: "episodes", Start: 0, Stop: 10},
			"*4\r\n$5\r\nLTRIM\r\n$8\r\nepisodes\r\n$1\r\n0\r\n$2\r\n10\r\n"),
		Entry("LRANGE", protocol.ListRange{Key: "seinfeld", Start: 0, Stop: -1},
			"*4\r\n$6\r\nLRANGE\r\n$8\r\nseinfeld\r\n$1\r\n0\r\n$2\r\n-1\r\n"),

		Entry("HDEL one", protocol.HashDel{Key: "seinfeld", Fields: protocol.One("kramer")},
			"*3\r\n$4\r\nHDEL\r\n$8\r\nseinfeld\r\n$6\r\nkramer\r\n"),
		Entry("HDEL many", protocol.HashDel{Key: "seinfeld", Fields: protocol.Many("kramer", "jerry")},
			"*4\r\n$4\r\nHDEL\r\n$8\r\nseinfeld\r\n$6\r\nkramer\r\n$5\r\njerry\r\n"),
		Entry("HSET one", protocol.HashSet{Key: "seinfeld", Fields: protocol.One(protocol.Pair{Key: "name", Value: "kramer"})},
			"*4\r\n$4\r\nHSET\r\n$8\r\nseinfeld\r\n$4\r\nname\r\n$6\r\nkramer\r\n"),
		Entry("HSET many", protocol.HashSet{Key: "seinfeld", Fields: protocol.Many(protocol.Pair{Key: "name", Value: "kramer"}, protocol.Pair{Key: "friend", Value: "jerry"})},
			"*6\r\n$4\r\nHSET\r\n$8\r\nseinfeld\r\n$4\r\nname\r\n$6\r\nkramer\r\n$6\r\nfriend\r\n$5\r\njerry\r\n"),
		Entry("HSETNX", protocol.HashSet{Key: "seinfeld", Fields: protocol.One(protocol.Pair{Key: "name", Value: "kramer"}), Insertion: protocol.IfNotExists},
			"*4\r\n$6\r\nHSETNX\r\n$8\r\nseinfeld\r\n$4\r\nname\r\n$6\r\nkramer\r\n"),
		Entry("HGETALL", protocol.HashGet{Key: "seinfeld"},
			"*2\r\n$7\r\nHGETALL\r\n$8\r\nseinfeld\r\n"),
		Entry("HGETALL from empty many", protocol.HashGet{Key: "seinfeld", Fields: protocol.Many[string]()},
			"*2\r\n$7\r\nHGETALL\r\n$8\r\nseinfeld\r\n"),
		Entry("HGET", protocol.HashGet{Key: "seinfeld", Fields: protocol.One("name")},
			"*3\r\n$4\r\nHGET\r\n$8\r\nseinfeld\r\n$4\r\nname\r\n"),
		Entry("HMGET", protocol.HashGet{Key: "seinfeld", Fields: protocol.Many("name", "friend")},
			"*4\r\n$5\r\nHMGET\r\n$8\r\nseinfeld\r\n$4\r\nname\r\n$6\r\nfriend\r\n"),
		Entry("HSTRLEN", protocol.HashStrLen{Key: "seinfeld", Field: "name"},
			"*3\r\n$7\r\nHSTRLEN\r\n$8\r\nseinfeld\r\n$4\r\nname\r\n"),
		Entry("HLEN", protocol.HashLen{Key: "seinfeld"},
			"*2\r\n$4\r\nHLEN\r\n$8\r\nseinfeld\r\n"),
		Entry("HINCRBY", protocol.HashIncr{Key: "kramer", Field: "episodes", By: 10},
			"*4\r\n$7\r\nHINCRBY\r\n$6\r\nkramer\r\n$8\r\nepisodes\r\n$2\r\n10\r\n"),
		Entry("HKEYS", protocol.HashKeys{Key: "seinfeld"},
			"*2\r\n$5\r\nHKEYS\r\n$8\r\nseinfeld\r\n"),
		Entry("HVALS", protocol.HashVals{Key: "seinfeld"},
			"*2\r\n$5\r\nHVALS\r\n$8\r\nseinfeld\r\n"),
		Entry("HEXISTS", protocol.HashExists{Key: "seinfeld", Field: "kramer"},
			"*3\r\n$7\r\nHEXISTS\r\n$8\r\nseinfeld\r\n$6\r\nkramer\r\n"),

		Entry("SADD one", protocol.SetAdd{Key: "seasons", Members: protocol.One("one")},
			"*3\r\n$4\r\nSADD\r\n$7\r\nseasons\r\n$3\r\none\r\n"),
		Entry("SADD many", protocol.SetAdd{Key: "seasons", Members: protocol.Many("one", "two")},
			"*4\r\n$4\r\nSADD\r\n$7\r\nseasons\r\n$3\r\none\r\n$3\r\ntwo\r\n"),
		Entry("SREM many", protocol.SetRem{Key: "seasons", Members: protocol.Many("one", "two")},
			"*4\r\n$4\r\nSREM\r\n$7\r\nseasons\r\n$3\r\none\r\n$3\r\ntwo\r\n"),
		Entry("SCARD", protocol.SetCard{Key: "seasons"},
			"*2\r\n$5\r\nSCARD\r\n$7\r\nseasons\r\n"),
		Entry("SUNION", protocol.SetUnion{Keys: protocol.Many("one", "two")},
			"*3\r\n$6\r\nSUNION\r\n$3\r\none\r\n$3\r\ntwo\r\n"),
		Entry("SINTER", protocol.SetInter{Keys: protocol.One("some")},
			"*2\r\n$6\r\nSINTER\r\n$4\r\nsome\r\n"),
		Entry("SDIFF", protocol.SetDiff{Keys: protocol.Many("one", "two")},
			"*3\r\n$5\r\nSDIFF\r\n$3\r\none\r\n$3\r\ntwo\r\n"),
		Entry("SISMEMBER", protocol.SetIsMember{Key: "seasons", Member: "one"},
			"*3\r\n$9\r\nSISMEMBER\r\n$7\r\nseasons\r\n$3\r\none\r\n"),
		Entry("SMEMBERS", protocol.SetMembers{Key: "seasons"},
			"*2\r\n$8\r\nSMEMBERS\r\n$7\r\nseasons\r\n"),
		Entry("SPOP", protocol.SetPop{Key: "seasons", Count: 1},
			"*2\r\n$4\r\nSPOP\r\n$7\r\nseasons\r\n"),
		Entry("SPOP count", protocol.SetPop{Key: "seasons", Count: 3},
			"*3\r\n$4\r\nSPOP\r\n$7\r\nseasons\r\n$1\r\n3\r\n"),
		Entry("SPOP zero", protocol.SetPop{Key: "seasons"},
			"*3\r\n$4\r\nSPOP\r\n$7\r\nseasons\r\n$1\r\n0\r\n"),
	)

	It("is deterministic", func() {
		cmd := protocol.ListPush{Side: protocol.Left, Insertion: protocol.IfExists, Key: "k", Values: protocol.One("v")}
		Expect(protocol.Encode(cmd)).To(Equal(protocol.Encode(cmd)))
	})

	It("is binary safe", func() {
		cmd := protocol.Echo{Message: "a\r\nb\x00"}
		Expect(string(protocol.Encode(cmd))).To(Equal("*2\r\n$4\r\nECHO\r\n$5\r\na\r\nb\x00\r\n"))
	})

	Describe("WriteCommand", func() {
		It("writes the encoded command", func() {
			w := bytes.NewBuffer([]byte{})
			cmd := protocol.StringLen{Key: "seinfeld"}

			Expect(protocol.WriteCommand(w, cmd)).To(Succeed())
			Expect(w.Bytes()).To(Equal(protocol.Encode(cmd)))
		})

		It("appends to an existing buffer", func() {
			out := protocol.AppendCommand([]byte("prefix"), protocol.Echo{Message: "x"})
			Expect(string(out)).To(Equal("prefix*2\r\n$4\r\nECHO\r\n$1\r\nx\r\n"))
		})
	})

	Describe("Humanize", func() {
		It("renders the command as typed", func() {
			cmd := protocol.ListPush{Side: protocol.Left, Insertion: protocol.IfExists, Key: "k", Values: protocol.One("v")}
			Expect(protocol.Humanize(cmd)).To(Equal("LPUSHX k v"))
		})

		It("quotes arguments with whitespace or no content", func() {
			cmd := protocol.StringSet{Values: protocol.One(protocol.Pair{Key: "a b", Value: ""})}
			Expect(protocol.Humanize(cmd)).To(Equal(`SET "a b" ""`))
		})
	})

	Describe("Equal", func() {
		It("compares commands by their wire form", func() {
			Expect(protocol.Equal(
				protocol.Del{Keys: protocol.One("a")},
				protocol.Del{Keys: protocol.Many("a")},
			)).To(BeTrue())

			Expect(protocol.Equal(
				protocol.StringGet{Keys: protocol.One("a")},
				protocol.StringGet{Keys: protocol.Many("a")},
			)).To(BeFalse())

			Expect(protocol.Equal(nil, protocol.Echo{})).To(BeFalse())
		})
	})

	Describe("WriteResponse", func() {
		It("writes every kind of reply", func() {
			w := bytes.NewBuffer([]byte{})

			resp := protocol.Array(
				protocol.Status("OK"),
				protocol.ErrorReply("ERR nope"),
				protocol.Integer(-42),
				protocol.BulkString("kramer"),
				protocol.NilBulk(),
				protocol.NilArray(),
				protocol.Array(),
			)

			Expect(protocol.WriteResponse(w, resp)).To(Succeed())
			Expect(w.String()).To(Equal("*7\r\n+OK\r\n-ERR nope\r\n:-42\r\n$6\r\nkramer\r\n$-1\r\n*-1\r\n*0\r\n"))
		})
	})
})
