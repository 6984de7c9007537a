package resptest_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/luma/respkit/client"
	"github.com/luma/respkit/internal/cli"
	"github.com/luma/respkit/internal/resptest"
	"github.com/luma/respkit/protocol"
)

func run(keyspace *resptest.Keyspace, line string) protocol.Response {
	return keyspace.Handle(strings.Fields(line))
}

var _ = Describe("Keyspace", func() {
	var keyspace *resptest.Keyspace

	BeforeEach(func() {
		keyspace = resptest.NewKeyspace()
	})

	It("starts empty", func() {
		Expect(string(keyspace.Snapshot())).To(Equal(`{}`))
	})

	It("can read a key that is written", func() {
		Expect(run(keyspace, "SET foo bar")).To(Equal(protocol.Status("OK")))
		Expect(run(keyspace, "GET foo")).To(Equal(protocol.BulkString("bar")))
		Expect(keyspace.Snapshot()).To(MatchJSON(`{"foo":"bar"}`))
	})

	It("keeps keys with dots whole", func() {
		Expect(run(keyspace, "SET a.b 1")).To(Equal(protocol.Status("OK")))
		Expect(run(keyspace, "GET a.b")).To(Equal(protocol.BulkString("1")))
		Expect(run(keyspace, "GET a")).To(Equal(protocol.NilBulk()))
		Expect(keyspace.Snapshot()).To(MatchJSON(`{"a.b":"1"}`))
	})

	It("restores a snapshot", func() {
		Expect(keyspace.Restore([]byte(`{"q":["a","b"],"h":{"f":"v"}}`))).To(Succeed())

		Expect(run(keyspace, "LRANGE q 0 -1")).To(Equal(protocol.Array(protocol.BulkString("a"), protocol.BulkString("b"))))
		Expect(run(keyspace, "HGET h f")).To(Equal(protocol.BulkString("v")))

		Expect(keyspace.Restore([]byte(`[]`))).NotTo(Succeed())
		Expect(keyspace.Restore([]byte(`{`))).NotTo(Succeed())
	})

	It("pushes and pops at both ends", func() {
		Expect(run(keyspace, "RPUSH q b c")).To(Equal(protocol.Integer(2)))
		Expect(run(keyspace, "LPUSH q a z")).To(Equal(protocol.Integer(4)))
		Expect(run(keyspace, "LRANGE q 0 -1").String()).To(Equal("1) \"z\"\n2) \"a\"\n3) \"b\"\n4) \"c\""))

		Expect(run(keyspace, "LPOP q")).To(Equal(protocol.BulkString("z")))
		Expect(run(keyspace, "RPOP q")).To(Equal(protocol.BulkString("c")))
		Expect(run(keyspace, "LLEN q")).To(Equal(protocol.Integer(2)))
	})

	It("removes lists once they are empty", func() {
		Expect(run(keyspace, "RPUSH q a")).To(Equal(protocol.Integer(1)))
		Expect(run(keyspace, "RPOP q")).To(Equal(protocol.BulkString("a")))
		Expect(run(keyspace, "RPOP q")).To(Equal(protocol.NilBulk()))
		Expect(run(keyspace, "EXISTS q")).To(Equal(protocol.Integer(0)))
	})

	It("only pushes onto existing lists with PUSHX", func() {
		Expect(run(keyspace, "LPUSHX q a")).To(Equal(protocol.Integer(0)))
		Expect(run(keyspace, "EXISTS q")).To(Equal(protocol.Integer(0)))

		Expect(run(keyspace, "RPUSH q a")).To(Equal(protocol.Integer(1)))
		Expect(run(keyspace, "RPUSHX q b")).To(Equal(protocol.Integer(2)))
	})

	It("answers blocking pops at once", func() {
		Expect(run(keyspace, "BLPOP a b 0")).To(Equal(protocol.NilArray()))

		Expect(run(keyspace, "RPUSH b x y")).To(Equal(protocol.Integer(2)))
		Expect(run(keyspace, "BRPOP a b 0")).To(Equal(protocol.Array(protocol.BulkString("b"), protocol.BulkString("y"))))
	})

	table.DescribeTable("list ranges",
		func(start, stop string, expected []string) {
			Expect(run(keyspace, "RPUSH q a b c d")).To(Equal(protocol.Integer(4)))

			elements := []protocol.Response{}
			for _, s := range expected {
				elements = append(elements, protocol.BulkString(s))
			}

			Expect(run(keyspace, "LRANGE q "+start+" "+stop)).To(Equal(protocol.Array(elements...)))
		},
		table.Entry("everything", "0", "-1", []string{"a", "b", "c", "d"}),
		table.Entry("a prefix", "0", "1", []string{"a", "b"}),
		table.Entry("the tail", "-2", "-1", []string{"c", "d"}),
		table.Entry("past the end", "2", "100", []string{"c", "d"}),
		table.Entry("before the start", "-100", "0", []string{"a"}),
		table.Entry("an inverted range", "3", "1", []string{}),
		table.Entry("beyond the list", "10", "20", []string{}),
	)

	It("counts and sets integers", func() {
		Expect(run(keyspace, "INCR n")).To(Equal(protocol.Integer(1)))
		Expect(run(keyspace, "INCRBY n 10")).To(Equal(protocol.Integer(11)))
		Expect(run(keyspace, "DECRBY n 20")).To(Equal(protocol.Integer(-9)))
		Expect(run(keyspace, "DECR n")).To(Equal(protocol.Integer(-10)))
		Expect(run(keyspace, "GET n")).To(Equal(protocol.BulkString("-10")))

		Expect(run(keyspace, "SET s abc")).To(Equal(protocol.Status("OK")))
		Expect(run(keyspace, "INCR s").ErrorOrNil()).To(MatchError(ContainSubstring("not an integer")))
		Expect(run(keyspace, "APPEND s def")).To(Equal(protocol.Integer(6)))
	})

	It("honours NX and XX", func() {
		Expect(run(keyspace, "SET k a XX")).To(Equal(protocol.NilBulk()))
		Expect(run(keyspace, "SET k a NX")).To(Equal(protocol.Status("OK")))
		Expect(run(keyspace, "SET k b NX")).To(Equal(protocol.NilBulk()))
		Expect(run(keyspace, "SET k c XX PX 100")).To(Equal(protocol.Status("OK")))
		Expect(run(keyspace, "GET k")).To(Equal(protocol.BulkString("c")))
		Expect(run(keyspace, "SET k d EX")).To(Equal(protocol.ErrorReply("ERR syntax error")))
	})

	It("stores hashes", func() {
		Expect(run(keyspace, "HSET h a 1 b 2")).To(Equal(protocol.Integer(2)))
		Expect(run(keyspace, "HSET h b 3 c 4")).To(Equal(protocol.Integer(1)))
		Expect(run(keyspace, "HLEN h")).To(Equal(protocol.Integer(3)))
		Expect(run(keyspace, "HGET h b")).To(Equal(protocol.BulkString("3")))
		Expect(run(keyspace, "HGET h z")).To(Equal(protocol.NilBulk()))
		Expect(run(keyspace, "HGETALL h").String()).To(Equal("1) \"a\"\n2) \"1\"\n3) \"b\"\n4) \"3\"\n5) \"c\"\n6) \"4\""))

		Expect(run(keyspace, "HDEL h a a z")).To(Equal(protocol.Integer(1)))
		Expect(run(keyspace, "HDEL h b c")).To(Equal(protocol.Integer(2)))
		Expect(run(keyspace, "EXISTS h")).To(Equal(protocol.Integer(0)))
		Expect(run(keyspace, "HGETALL h")).To(Equal(protocol.Array()))
	})

	It("deletes keys of any type", func() {
		Expect(keyspace.Restore([]byte(`{"s":"x","q":["a"],"h":{"f":"v"}}`))).To(Succeed())

		Expect(run(keyspace, "DEL s q h nope")).To(Equal(protocol.Integer(3)))
		Expect(keyspace.Snapshot()).To(MatchJSON(`{}`))
	})

	table.DescribeTable("refusals",
		func(line, prefix string) {
			Expect(keyspace.Restore([]byte(`{"s":"x","q":["a"],"h":{"f":"v"}}`))).To(Succeed())

			resp := run(keyspace, line)
			Expect(resp.Kind).To(Equal(protocol.KindError), line)

			var replyErr *protocol.ReplyError
			Expect(resp.ErrorOrNil()).To(BeAssignableToTypeOf(replyErr))
			Expect(resp.ErrorOrNil().(*protocol.ReplyError).Prefix()).To(Equal(prefix), line)
		},
		table.Entry("an unknown command", "FLUSHALL", "ERR"),
		table.Entry("too few arguments", "GET", "ERR"),
		table.Entry("odd field pairs", "HSET h a 1 b", "ERR"),
		table.Entry("a list read as a string", "GET q", "WRONGTYPE"),
		table.Entry("a string read as a list", "LPOP s", "WRONGTYPE"),
		table.Entry("a hash pushed to", "RPUSH h a", "WRONGTYPE"),
		table.Entry("a list read as a hash", "HGET q f", "WRONGTYPE"),
		table.Entry("a bad offset", "LRANGE q a 1", "ERR"),
		table.Entry("a bad timeout", "BLPOP q soon", "ERR"),
		table.Entry("a wildcard key", "SET a* b", "ERR"),
	)

	Describe("behind a Server", func() {
		var server *resptest.Server

		BeforeEach(func() {
			var err error
			server, err = resptest.NewServer(keyspace.Handle, nil)
			Expect(err).To(Succeed())
		})

		AfterEach(func() {
			Expect(server.Close()).To(Succeed())
		})

		for _, mode := range []client.Mode{client.ModeBlocking, client.ModeCooperative} {
			mode := mode

			It("serves a queue to a "+mode.String()+" client", func() {
				conn, err := client.Open(context.Background(), server.Host, server.Port, client.Options{Mode: mode})
				Expect(err).To(Succeed())
				defer conn.Close()

				var loop *client.Loop
				if mode == client.ModeCooperative {
					loop, err = client.NewLoop(nil)
					Expect(err).To(Succeed())
					defer loop.Close()
				}

				exec := func(line string) protocol.Response {
					args, err := cli.Split(line)
					Expect(err).To(Succeed())

					cmd, err := cli.Parse(args)
					Expect(err).To(Succeed())

					if loop != nil {
						resp, err := loop.Execute(context.Background(), conn, cmd)
						Expect(err).To(Succeed())
						return resp
					}

					resp, err := client.Execute(conn, cmd)
					Expect(err).To(Succeed())
					return resp
				}

				expect := func(line string, want protocol.Response) {
					resp := exec(line)
					Expect(resp.Equal(want)).To(BeTrue(), "%s answered %s", line, resp)
				}

				expect(`RPUSH jobs "job 1" "job 2"`, protocol.Integer(2))
				expect(`BLPOP jobs 1`, protocol.Array(protocol.BulkString("jobs"), protocol.BulkString("job 1")))
				expect(`LPOP jobs`, protocol.BulkString("job 2"))
				expect(`BLPOP jobs 1`, protocol.NilArray())
				expect(`GET jobs`, protocol.NilBulk())
				expect(`LPUSH jobs x`, protocol.Integer(1))
				Expect(exec(`HGET jobs f`).ErrorOrNil()).To(MatchError(ContainSubstring("WRONGTYPE")))
			})
		}
	})
})
