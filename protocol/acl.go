package protocol

// ACLSetUser creates (or updates) an enabled ACL user, i.e.
//
//   ACL SETUSER <Name> on ><Password> +<Commands> ~<Keys>
//
// Only this single shape of SETUSER is supported.
type ACLSetUser struct {
	Name     string
	Password string
	Commands string
	Keys     string
}

func (c ACLSetUser) Args() []string {
	return []string{
		"ACL",
		"SETUSER",
		c.Name,
		"on",
		">" + c.Password,
		"+" + c.Commands,
		"~" + c.Keys,
	}
}

func (ACLSetUser) command() {}
