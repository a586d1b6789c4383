package workflow

import "github.com/gregLibert/cardflow/pkg/card"

// Context is the mutable key/value store threaded through one workflow
// execution. Steps read and write it only through Get/Set; Values hands out
// a copy, so no step ever aliases the underlying map. A context lives for
// one run and is discarded afterwards.
type Context struct {
	values  map[string]string
	session *card.Session
}

// NewContext creates a run context seeded with the initial field values.
func NewContext(session *card.Session, initial map[string]string) *Context {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Context{values: values, session: session}
}

// Get returns the value for a key.
func (c *Context) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set stores a value.
func (c *Context) Set(key, value string) {
	c.values[key] = value
}

// Merge stores every entry of values.
func (c *Context) Merge(values map[string]string) {
	for k, v := range values {
		c.values[k] = v
	}
}

// Values returns a copy of the current store for template resolution.
func (c *Context) Values() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Session returns the card session of this run.
func (c *Context) Session() *card.Session {
	return c.session
}
