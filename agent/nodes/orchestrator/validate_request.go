package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

var ErrInvalidRequest = errors.New("request is empty")

type GraphInput struct {
	RequestID string
	Request   string
}

type GraphOutput struct {
	Report contractx.Report
}

type GraphState struct {
	RequestID string
	Request   string
	Started   time.Time

	Plan    contractx.Plan
	Results contractx.ResultSet
	Report  contractx.Report
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	request := strings.TrimSpace(in.Request)
	if request == "" {
		return nil, ErrInvalidRequest
	}

	return &GraphState{
		RequestID: strings.TrimSpace(in.RequestID),
		Request:   request,
		Started:   nowFn(),
	}, nil
}
