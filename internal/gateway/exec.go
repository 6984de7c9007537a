package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/respkit/client"
	"github.com/luma/respkit/internal/cli"
	"github.com/luma/respkit/protocol"
)

var errBadRequest = errors.New("bad request")

// exec runs the command in a `{"args": [...], "mode": "..."}` body and
// answers with the reply as JSON.
func (g *Gateway) exec(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		g.fail(c, http.StatusBadRequest, err)
		return
	}

	cmd, options, err := g.decode(body)
	if err != nil {
		g.fail(c, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := g.execContext(c.Request.Context())
	defer cancel()

	resp, err := client.Send(ctx, g.options.Host, g.options.Port, cmd, options)
	if err != nil {
		g.fail(c, status(err), err)
		return
	}

	out, err := reply(cmd, resp)
	if err != nil {
		g.fail(c, http.StatusInternalServerError, err)
		return
	}

	c.Data(http.StatusOK, "application/json", out)
}

func (g *Gateway) decode(body []byte) (protocol.Command, client.Options, error) {
	options := g.options.Client

	if !gjson.ValidBytes(body) {
		return nil, options, fmt.Errorf("%w: body is not JSON", errBadRequest)
	}

	args := gjson.GetBytes(body, "args")
	if !args.IsArray() {
		return nil, options, fmt.Errorf("%w: args must be an array of strings", errBadRequest)
	}

	var argv []string
	for _, arg := range args.Array() {
		if arg.Type != gjson.String {
			return nil, options, fmt.Errorf("%w: args must be an array of strings", errBadRequest)
		}

		argv = append(argv, arg.String())
	}

	if mode := gjson.GetBytes(body, "mode"); mode.Exists() {
		m, err := client.ParseMode(mode.String())
		if err != nil {
			return nil, options, fmt.Errorf("%w: %v", errBadRequest, err)
		}

		options.Mode = m
	}

	cmd, err := cli.Parse(argv)
	return cmd, options, err
}

func (g *Gateway) execContext(parent context.Context) (context.Context, context.CancelFunc) {
	if g.options.ExecTimeout > 0 {
		return context.WithTimeout(parent, g.options.ExecTimeout)
	}

	return context.WithCancel(parent)
}

func (g *Gateway) fail(c *gin.Context, code int, err error) {
	if code >= http.StatusInternalServerError {
		g.log.Warn("Exec failed", zap.Int("status", code), zap.Error(err))
	}

	c.Data(code, "application/json", failure(err))
}

// status maps an execution failure onto the HTTP status reported for it.
func status(err error) int {
	var connectErr *client.ConnectError

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &connectErr),
		errors.Is(err, client.ErrTransport),
		errors.Is(err, client.ErrMalformedReply):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// reply renders `{"command": "...", "reply": {...}}`.
func reply(cmd protocol.Command, resp protocol.Response) ([]byte, error) {
	raw, err := resp.MarshalJSON()
	if err != nil {
		return nil, err
	}

	out, err := sjson.SetBytes([]byte(`{}`), "command", protocol.Humanize(cmd))
	if err != nil {
		return nil, err
	}

	return sjson.SetRawBytes(out, "reply", raw)
}

// failure renders `{"error": "...", "kind": "..."}`, kind being one of
// request, connect, transport, malformed or other.
func failure(err error) []byte {
	var connectErr *client.ConnectError

	kind := "other"
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, cli.ErrUnknownCommand),
		errors.Is(err, cli.ErrArgCount),
		errors.Is(err, cli.ErrSyntax):
		kind = "request"
	case errors.As(err, &connectErr):
		kind = "connect"
	case errors.Is(err, client.ErrTransport):
		kind = "transport"
	case errors.Is(err, client.ErrMalformedReply):
		kind = "malformed"
	}

	out, _ := sjson.SetBytes([]byte(`{}`), "error", err.Error())
	out, _ = sjson.SetBytes(out, "kind", kind)

	return out
}

// console runs a session in which every text frame is a command line and
// every answer a JSON frame, over a single connection to the server.
func (g *Gateway) console(c *gin.Context) {
	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	ctx := c.Request.Context()

	sess, err := g.openSession(ctx)
	if err != nil {
		_ = ws.WriteMessage(websocket.TextMessage, failure(err))
		return
	}

	defer func() {
		if err := sess.Close(); err != nil {
			g.log.Debug("Session did not close cleanly", zap.Error(err))
		}
	}()

	for {
		msgType, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		args, err := cli.Split(string(payload))
		if err != nil {
			_ = ws.WriteMessage(websocket.TextMessage, failure(err))
			continue
		}

		if len(args) == 0 {
			continue
		}

		cmd, err := cli.Parse(args)
		if err != nil {
			_ = ws.WriteMessage(websocket.TextMessage, failure(err))
			continue
		}

		execCtx, cancel := g.execContext(ctx)
		resp, err := sess.execute(execCtx, cmd)
		cancel()

		if err != nil {
			// The connection is broken, the session ends with it
			_ = ws.WriteMessage(websocket.TextMessage, failure(err))
			return
		}

		out, err := reply(cmd, resp)
		if err != nil {
			_ = ws.WriteMessage(websocket.TextMessage, failure(err))
			continue
		}

		if err := ws.WriteMessage(websocket.TextMessage, out); err != nil {
			return
		}
	}
}

// session is a connection kept for the lifetime of a websocket, with the
// loop driving it when it is cooperative.
type session struct {
	conn *client.Conn
	loop *client.Loop
}

func (g *Gateway) openSession(ctx context.Context) (*session, error) {
	conn, err := client.Open(ctx, g.options.Host, g.options.Port, g.options.Client)
	if err != nil {
		return nil, err
	}

	sess := &session{conn: conn}

	if g.options.Client.Mode == client.ModeCooperative {
		if sess.loop, err = client.NewLoop(g.log); err != nil {
			return nil, multierr.Append(err, conn.Close())
		}
	}

	return sess, nil
}

func (s *session) execute(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	if s.loop != nil {
		return s.loop.Execute(ctx, s.conn, cmd)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetDeadline(deadline); err != nil {
			return protocol.Nothing(), err
		}
	}

	return client.Execute(s.conn, cmd)
}

func (s *session) Close() error {
	err := s.conn.Close()

	if s.loop != nil {
		err = multierr.Append(err, s.loop.Close())
	}

	return err
}
