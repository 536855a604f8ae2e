package filter

// RegisterBuiltins registers the filters shipped with blogbuilder.
func RegisterBuiltins(r *Registry) error {
	if err := r.Register("markdown", NewMarkdown()); err != nil {
		return err
	}
	return r.Register("syntax_highlight", NewSyntaxHighlight())
}

// NewDefaultRegistry returns a registry holding the builtin filters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		panic(err) // builtin names never collide
	}
	return r
}
