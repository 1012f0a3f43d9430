package parser

import "github.com/mckib2/cythonator/internal/decl"

// publicFields collects the data members of a record that are visible from
// outside it. Access starts at the tag's default and follows each access
// specifier in declaration order.
func publicFields(n *node, tag decl.Tag, typeOf func(*node) decl.NativeType) []decl.Field {
	public := tag != decl.TagClass
	var fields []decl.Field
	for _, child := range n.Inner {
		if child.IsImplicit {
			continue
		}
		switch child.Kind {
		case "AccessSpecDecl":
			public = child.Access == "public"
		case "FieldDecl":
			if !public || child.Name == "" {
				continue
			}
			fields = append(fields, decl.Field{Name: child.Name, Type: typeOf(child)})
		}
	}
	return fields
}
