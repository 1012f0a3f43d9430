package decl

// Visitor receives one callback per declaration variant. Adding a variant
// adds a method here, so every traversal has to handle it before it compiles.
type Visitor interface {
	VisitFunction(f *Function)
	VisitAggregate(a *Aggregate)
	VisitTypedef(t *Typedef)
	VisitTemplate(t *Template)
	VisitNamespace(n *Namespace)
}

// Walk dispatches every declaration in order to v. Namespaces are not
// descended into; VisitNamespace decides whether to recurse.
func Walk(v Visitor, decls []Decl) {
	for _, d := range decls {
		d.Accept(v)
	}
}

// QualifiedName joins namespace components with "::".
func QualifiedName(scope []string, name string) string {
	q := ""
	for _, s := range scope {
		if s == "" {
			continue
		}
		q += s + "::"
	}
	return q + name
}
