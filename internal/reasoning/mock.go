package reasoning

import (
	"context"
	"sync"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/collector"
	"github.com/cartloop/cartloop/internal/plan"
	"github.com/cartloop/cartloop/internal/types"
)

// MockGateway is a scripted Gateway for tests. Responses are consumed in
// order per method; when the script runs out the last entry repeats. Errors
// interleave with responses via the Err field.
type MockGateway struct {
	mu sync.Mutex

	judgments    []mockResult[*Judgment]
	intents      []mockResult[*Intent]
	itemLists    []mockResult[[]plan.RequestItem]
	judgmentIdx  int
	intentIdx    int
	itemListsIdx int

	// SelectCalls records every SelectVariant invocation for assertions.
	SelectCalls []SelectCall
	// ClassifyCalls records every ClassifyFeedback invocation.
	ClassifyCalls []ClassifyCall
	// ParseCalls records every ParseItems input.
	ParseCalls []string
}

type mockResult[T any] struct {
	value T
	err   error
}

// SelectCall captures one SelectVariant invocation.
type SelectCall struct {
	ProductName string
	ByVendor    map[string][]catalog.Variant
	Hint        *collector.Selection
	Requirement string
}

// ClassifyCall captures one ClassifyFeedback invocation.
type ClassifyCall struct {
	UserInput    string
	CartProducts []string
}

// NewMockGateway creates an empty mock. An unscripted method returns a
// permanent REASONING_INVALID_OUTPUT error.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// QueueJudgment appends a scripted SelectVariant success.
func (m *MockGateway) QueueJudgment(j *Judgment) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.judgments = append(m.judgments, mockResult[*Judgment]{value: j})
	return m
}

// QueueJudgmentError appends a scripted SelectVariant failure.
func (m *MockGateway) QueueJudgmentError(err error) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.judgments = append(m.judgments, mockResult[*Judgment]{err: err})
	return m
}

// QueueIntent appends a scripted ClassifyFeedback success.
func (m *MockGateway) QueueIntent(i *Intent) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents = append(m.intents, mockResult[*Intent]{value: i})
	return m
}

// QueueIntentError appends a scripted ClassifyFeedback failure.
func (m *MockGateway) QueueIntentError(err error) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents = append(m.intents, mockResult[*Intent]{err: err})
	return m
}

// QueueItems appends a scripted ParseItems success.
func (m *MockGateway) QueueItems(items []plan.RequestItem) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itemLists = append(m.itemLists, mockResult[[]plan.RequestItem]{value: items})
	return m
}

// QueueItemsError appends a scripted ParseItems failure.
func (m *MockGateway) QueueItemsError(err error) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itemLists = append(m.itemLists, mockResult[[]plan.RequestItem]{err: err})
	return m
}

// SelectVariant implements Gateway.
func (m *MockGateway) SelectVariant(ctx context.Context, productName string, byVendor map[string][]catalog.Variant, hint *collector.Selection, requirement string) (*Judgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.SelectCalls = append(m.SelectCalls, SelectCall{
		ProductName: productName,
		ByVendor:    byVendor,
		Hint:        hint,
		Requirement: requirement,
	})

	result, ok := nextResult(m.judgments, &m.judgmentIdx)
	if !ok {
		return nil, types.NewError(types.REASONING_INVALID_OUTPUT, "mock: no judgment scripted")
	}
	return result.value, result.err
}

// ClassifyFeedback implements Gateway.
func (m *MockGateway) ClassifyFeedback(ctx context.Context, userInput string, cartProducts []string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ClassifyCalls = append(m.ClassifyCalls, ClassifyCall{
		UserInput:    userInput,
		CartProducts: cartProducts,
	})

	result, ok := nextResult(m.intents, &m.intentIdx)
	if !ok {
		return nil, types.NewError(types.REASONING_INVALID_OUTPUT, "mock: no intent scripted")
	}
	return result.value, result.err
}

// ParseItems implements Gateway.
func (m *MockGateway) ParseItems(ctx context.Context, userInput string) ([]plan.RequestItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ParseCalls = append(m.ParseCalls, userInput)

	result, ok := nextResult(m.itemLists, &m.itemListsIdx)
	if !ok {
		return nil, types.NewError(types.REASONING_INVALID_OUTPUT, "mock: no item list scripted")
	}
	return result.value, result.err
}

// nextResult consumes the script at *idx, repeating the last entry once
// exhausted.
func nextResult[T any](script []mockResult[T], idx *int) (mockResult[T], bool) {
	if len(script) == 0 {
		var zero mockResult[T]
		return zero, false
	}
	i := *idx
	if i >= len(script) {
		i = len(script) - 1
	} else {
		*idx++
	}
	return script[i], true
}
