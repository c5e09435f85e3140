package rotation

// State is the lifecycle position of one invocation.
type State int

const (
	Pending State = iota
	AttemptingKey
	Succeeded
	ExhaustedAllKeys
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case AttemptingKey:
		return "attempting_key"
	case Succeeded:
		return "succeeded"
	case ExhaustedAllKeys:
		return "exhausted_all_keys"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further attempts can follow s.
func (s State) Terminal() bool {
	return s == Succeeded || s == ExhaustedAllKeys
}
