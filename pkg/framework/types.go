package framework

import (
	"context"
	"time"
)

// Named is implemented by things with a name, used in runner logs.
type Named interface {
	Name() string
}

// Runnable is a background task bound to a context.
type Runnable interface {
	Run(context.Context) error
}

// RunnableFunc is the func form of Runnable.
type RunnableFunc func(context.Context) error

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is anything posted into the loop from another goroutine,
// e.g. a frontend request.
type Message interface{}

// Controller runs once per loop iteration at its priority level.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// TimeSource provides the time of the current iteration.
type TimeSource interface {
	Time() time.Time
}

// ControlContext is the view of the current iteration.
type ControlContext interface {
	TimeSource
	// Context carries the loop control, see LoopCtlFrom.
	Context() context.Context
	// PriorityLevel is the level of the running controller.
	PriorityLevel() int
	// Messages are the messages posted before this iteration started.
	Messages() MessageStore
	// PostRun installs one-shot hooks after the controllers of the
	// current level. Hooks installed by hooks run next iteration.
	PostRun(hooks ...Controller)

	LoopControl
}

// PriorityLevels is the number of priority levels.
const PriorityLevels int = 16

// Priority levels, lower runs first.
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvSense is where buses are polled.
	PrLvSense = PrLvHigh
	// PrLvControl is where frontend requests are applied.
	PrLvControl = PrLvNormal
	// PrLvReport is where state is published.
	PrLvReport = PrLvLow
)

// LoopControl is usable from any goroutine.
type LoopControl interface {
	// PreRunAt installs one-shot hooks before the controllers of a level.
	PreRunAt(priorityLevel int, controllers ...Controller)
	// PostRunAt installs one-shot hooks after the controllers of a level.
	PostRunAt(priorityLevel int, controllers ...Controller)
	// PostMessage queues a message for the next iteration.
	PostMessage(Message)
	// TriggerNext runs the next iteration without waiting for the tick.
	TriggerNext()
}

// MessageStore holds the messages of an iteration.
type MessageStore interface {
	// ProcessMessages passes every message to the processor.
	ProcessMessages(MessageProcessor)

	MessageAppender
}

// MessageAppender appends messages to a store.
type MessageAppender interface {
	AddMessages(msgs ...Message)
}

// MessageProcessor consumes messages of a store.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext is the view of the message being processed.
type MessageProcessingContext interface {
	CurrentMessage() Message
	// MessageTaken removes the message from the store.
	MessageTaken()
	// StopProcessing skips the remaining messages.
	StopProcessing()

	MessageAppender
}
