package triplist

// Kind distinguishes the list states.
type Kind int

const (
	KindEmpty Kind = iota
	KindItems
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindItems:
		return "items"
	case KindError:
		return "error"
	default:
		return "empty"
	}
}

// State is what the list shows. Rows are newest first and set only for
// KindItems; Message only for KindError.
type State struct {
	Kind    Kind
	Rows    []*Row
	Message string
}

// Keys returns the record keys of the rows, in display order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		keys = append(keys, r.Key())
	}
	return keys
}
