package provider

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"chatkit/model"
)

// accumulator folds one provider stream into a single assistant message,
// firing the caller's handlers as state grows. Exactly one accumulator is
// owned by one Chat call; nothing outlives the call except the final
// message returned by Message().
//
// Content and thinking only ever grow by appending. Tool calls are keyed
// directly by the provider's block index, so interleaved or non-contiguous
// tool blocks can never finalize the wrong call.
type accumulator struct {
	handlers model.StreamHandlers

	content  strings.Builder
	thinking strings.Builder

	calls []model.ToolCall         // insertion order = announcement order
	slot  map[int]int              // block index → position in calls
	args  map[int]*strings.Builder // argument fragments per block index
	order []int                    // block indexes in announcement order
}

func newAccumulator(handlers model.StreamHandlers) *accumulator {
	return &accumulator{
		handlers: handlers,
		slot:     make(map[int]int),
		args:     make(map[int]*strings.Builder),
	}
}

// AppendText grows the answer text and emits the new chunk.
func (a *accumulator) AppendText(chunk string) {
	if chunk == "" {
		return
	}
	a.content.WriteString(chunk)
	a.handlers.EmitText(chunk)
}

// AppendThinking grows the reasoning text and emits the cumulative value.
func (a *accumulator) AppendThinking(chunk string) {
	if chunk == "" {
		return
	}
	a.thinking.WriteString(chunk)
	a.handlers.EmitThinking(a.thinking.String())
}

// HasToolCall reports whether a call was already announced at this index.
func (a *accumulator) HasToolCall(index int) bool {
	_, ok := a.slot[index]
	return ok
}

// StartToolCall registers the tool call announced at the given block index
// and emits its first snapshot so callers can show a pending card
// immediately. A second start for the same index is ignored. When the
// provider supplied no ID, a stable one is generated here.
func (a *accumulator) StartToolCall(index int, id, name string) {
	if a.HasToolCall(index) {
		return
	}
	if id == "" {
		id = uuid.New().String()
	}

	call := model.ToolCall{
		ID:     id,
		Name:   name,
		Input:  map[string]any{},
		Status: model.StatusRunning,
	}
	a.slot[index] = len(a.calls)
	a.calls = append(a.calls, call)
	a.args[index] = &strings.Builder{}
	a.order = append(a.order, index)

	a.handlers.EmitToolCall(call)
}

// AppendToolName extends the call's name for providers that stream the
// function name in fragments.
func (a *accumulator) AppendToolName(index int, fragment string) {
	pos, ok := a.slot[index]
	if !ok || fragment == "" {
		return
	}
	a.calls[pos].Name += fragment
	a.handlers.EmitToolCall(a.calls[pos])
}

// AppendToolArgs buffers a raw argument fragment. Fragments are not valid
// JSON individually, so nothing is parsed until the block closes.
// Fragments for an unannounced index are dropped (leniency policy).
func (a *accumulator) AppendToolArgs(index int, fragment string) {
	buf, ok := a.args[index]
	if !ok || fragment == "" {
		return
	}
	buf.WriteString(fragment)
}

// FinishToolCall closes the block at index: the buffered fragment text is
// parsed into the call's input, with a raw-string fallback when the
// accumulated text is not a JSON object. It never fails, transitions the
// call to complete either way, and emits the finalized snapshot.
// Finishing an already-complete or unknown index is a no-op.
func (a *accumulator) FinishToolCall(index int) {
	pos, ok := a.slot[index]
	if !ok || a.calls[pos].Status == model.StatusComplete {
		return
	}
	a.calls[pos].Input = ParseToolArguments(a.args[index].String())
	a.calls[pos].Status = model.StatusComplete
	a.handlers.EmitToolCall(a.calls[pos])
}

// AddCompleteToolCall records a call that arrived whole, already parsed
// (Ollama delivers tool calls this way, never as fragments).
func (a *accumulator) AddCompleteToolCall(id, name string, input map[string]any) {
	if id == "" {
		id = uuid.New().String()
	}
	if input == nil {
		input = map[string]any{}
	}
	call := model.ToolCall{
		ID:     id,
		Name:   name,
		Input:  input,
		Status: model.StatusComplete,
	}
	a.calls = append(a.calls, call)
	a.handlers.EmitToolCall(call)
}

// Message finalizes the stream and returns the accumulated assistant
// message. Calls still running at stream end are completed here: flat
// delta-only streams have no explicit stop event, completion is implied by
// the stream ending.
func (a *accumulator) Message() *model.Message {
	for _, index := range a.order {
		a.FinishToolCall(index)
	}

	msg := model.NewMessage(model.RoleAssistant, a.content.String())
	msg.Thinking = a.thinking.String()
	if len(a.calls) > 0 {
		msg.ToolCalls = a.calls
	}
	return &msg
}

// ParseToolArguments parses accumulated tool-argument text into a map.
// It is a pure function of the concatenated fragment text: empty input
// parses to an empty map, and anything that is not a JSON object becomes
// {"raw": <original text>} so malformed arguments can never abort a stream.
func ParseToolArguments(argsJSON string) map[string]any {
	if strings.TrimSpace(argsJSON) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil || args == nil {
		return map[string]any{"raw": argsJSON}
	}
	return args
}
