package extract

// Stage tracks progress through the multi-pass pipeline.
// Transitions are guarded on the upstream stage producing at least one book;
// an empty stage aborts the pipeline and its result is forwarded as final.
type Stage string

const (
	StageInitial   Stage = "initial"
	StageRefined   Stage = "refined"
	StageValidated Stage = "validated"
	StageAborted   Stage = "aborted"
)

// advance returns the next stage given the number of books the current
// stage produced. StageValidated and StageAborted are terminal.
func advance(current Stage, produced int) Stage {
	if produced == 0 {
		return StageAborted
	}
	switch current {
	case StageInitial:
		return StageRefined
	case StageRefined:
		return StageValidated
	default:
		return current
	}
}

// terminal reports whether the pipeline stops at this stage.
func terminal(s Stage) bool {
	return s == StageValidated || s == StageAborted
}
