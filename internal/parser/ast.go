package parser

// node is one entry of clang's JSON AST dump (-Xclang -ast-dump=json).
// Only the attributes the adapter reads are declared.
type node struct {
	ID    string
	Kind  string
	Loc   loc
	Range rangeStruct `json:",omitempty"`
	Inner []*node     `json:",omitempty"`

	Access             string      `json:",omitempty"`
	CompleteDefinition bool        `json:",omitempty"`
	Decl               *node       `json:",omitempty"`
	IsImplicit         bool        `json:",omitempty"`
	Name               string      `json:",omitempty"`
	OwnedTagDecl       *node       `json:",omitempty"`
	PreviousDecl       string      `json:",omitempty"`
	TagUsed            string      `json:",omitempty"`
	Type               *typeStruct `json:",omitempty"`
	Variadic           bool        `json:",omitempty"`
}

type typeStruct struct {
	QualType          string `json:",omitempty"`
	DesugaredQualType string `json:",omitempty"`
}

type rangeStruct struct {
	Begin *loc `json:",omitempty"`
	End   *loc `json:",omitempty"`
}

type loc struct {
	File         string   `json:",omitempty"`
	Line         uint     `json:",omitempty"`
	Col          uint     `json:",omitempty"`
	Offset       uint     `json:",omitempty"`
	TokLen       uint     `json:",omitempty"`
	IncludedFrom *fileRef `json:",omitempty"`
	SpellingLoc  *loc     `json:",omitempty"`
	ExpansionLoc *loc     `json:",omitempty"`
}

type fileRef struct {
	File string
}

func (l *loc) empty() bool {
	return l.File == "" && l.Line == 0 && l.Col == 0 && l.Offset == 0 &&
		l.SpellingLoc == nil && l.ExpansionLoc == nil
}

// expanded returns the location a macro expanded to, or l itself.
func (l *loc) expanded() *loc {
	if l.ExpansionLoc != nil {
		return l.ExpansionLoc
	}
	return l
}

// locTracker undoes clang's location compression. A location repeats the
// file and line only when they change from the previously printed location,
// so every location has to be visited in document order.
type locTracker struct {
	file         string
	includedFrom *fileRef
	line         uint
}

func (t *locTracker) fill(l *loc) {
	if l == nil || l.empty() {
		return
	}
	if l.SpellingLoc != nil || l.ExpansionLoc != nil {
		t.fill(l.SpellingLoc)
		t.fill(l.ExpansionLoc)
		return
	}
	if l.File != "" {
		t.file = l.File
		t.includedFrom = l.IncludedFrom
	} else {
		l.File = t.file
		l.IncludedFrom = t.includedFrom
	}
	if l.Line != 0 {
		t.line = l.Line
	} else {
		l.Line = t.line
	}
}

func (t *locTracker) walk(n *node) {
	if n == nil {
		return
	}
	t.fill(&n.Loc)
	t.fill(n.Range.Begin)
	t.fill(n.Range.End)
	for _, child := range n.Inner {
		t.walk(child)
	}
}
