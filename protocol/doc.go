package protocol

// This package implements the client side of the Redis serialization
// protocol (RESP2): it turns commands into request bytes and reply bytes
// back into values. It never touches a connection itself.
//
// - `Command` - A request to the server, one struct per operation.
// - `Response` - A reply from the server.
// - `ParseState` - The bytes of a reply that is still arriving.
//
// === General Syntax
//
// - lines are `\r\n` delimited
// - every value starts with a single type byte
// - lengths and integers are written as decimal text
//
// === Requests
//
// Every command, even one without arguments, is sent as an array of bulk
// strings. The first element is the command keyword.
//
//   ```
//     > *3\r\n$6\r\nLPUSHX\r\n$1\r\nk\r\n$1\r\nv\r\n
//   ```
//
// Argument order is fixed per command and matches the server's documented
// syntax. A Command that can be built can be encoded, so Encode has no error.
//
// === Replies
//
//   ```
//     +<status>\r\n
//     -<error message>\r\n
//     :<integer>\r\n
//     $<length>\r\n<payload>\r\n
//     *<count>\r\n<count nested replies>
//   ```
//
// A length of -1 is an absent bulk (`$-1\r\n`) or an absent array
// (`*-1\r\n`). These are distinct from a zero length bulk or array.
//
// An error reply is a successfully parsed Response with Kind KindError, not
// a parse failure.
//
// === Partial replies
//
// Replies arrive over a stream and may be split across reads at any byte.
// Parse reports ErrIncomplete without consuming anything until the whole
// reply is buffered, and ErrMalformed as soon as a byte breaks the grammar.
