package prefs

// OpKind distinguishes the two mutations an Edit can carry.
type OpKind int

const (
	OpPut OpKind = iota
	OpRemove
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Op is a single put or remove of one key.
type Op struct {
	Kind  OpKind
	Key   string
	Value string // ignored for OpRemove
}

// Edit is an ordered batch of operations applied as one logical update.
// The zero value is an empty edit ready to use.
type Edit struct {
	Ops []Op
}

// Put appends a write of value under key.
func (e *Edit) Put(key, value string) *Edit {
	e.Ops = append(e.Ops, Op{Kind: OpPut, Key: key, Value: value})
	return e
}

// Remove appends a deletion of key.
func (e *Edit) Remove(key string) *Edit {
	e.Ops = append(e.Ops, Op{Kind: OpRemove, Key: key})
	return e
}

// Empty reports whether the edit carries no operations.
func (e Edit) Empty() bool {
	return len(e.Ops) == 0
}

// ApplyTo replays the edit onto m.
func (e Edit) ApplyTo(m map[string]string) {
	for _, op := range e.Ops {
		switch op.Kind {
		case OpPut:
			m[op.Key] = op.Value
		case OpRemove:
			delete(m, op.Key)
		}
	}
}

// compact keeps only the last operation per key, in the order those last
// operations occurred.
func (e Edit) compact() Edit {
	last := make(map[string]int, len(e.Ops))
	for i, op := range e.Ops {
		last[op.Key] = i
	}
	out := make([]Op, 0, len(last))
	for i, op := range e.Ops {
		if last[op.Key] == i {
			out = append(out, op)
		}
	}
	return Edit{Ops: out}
}
