package llm

import (
	"context"
	"fmt"

	"github.com/nbenliogludev/deskgpt/internal/action"
)

// Client turns one natural-language instruction into an ordered action list.
type Client interface {
	GenerateActions(ctx context.Context, req Request) ([]action.Action, error)
}

// Request is everything the model sees for one instruction.
type Request struct {
	Instruction string
	CurrentURL  string
	PageTitle   string
	PageOutline string
	History     []string
}

const (
	OpRequest = "request"
	OpEmpty   = "empty"
	OpDecode  = "decode"
)

// ModelError is returned for every GenerateActions failure. Op says which
// stage failed: the API call, an empty reply, or decoding the reply.
type ModelError struct {
	Op  string
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
