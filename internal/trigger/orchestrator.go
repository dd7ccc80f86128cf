// Package trigger wakes a remote device and re-fetches what it produces once
// the device has had time to report.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"smartfarm-dashboard-go/internal/farmapi"
	"smartfarm-dashboard-go/internal/farmerr"
)

// FollowUpDelay is the fixed wait between a successful trigger and the
// refresh of its data.
const FollowUpDelay = 3000 * time.Millisecond

type Action int

const (
	// Capture asks the camera for a new photo and refreshes the gallery.
	Capture Action = iota
	// Resample asks the sensor board for a new reading and refreshes the
	// sensor snapshot.
	Resample
)

func (a Action) Device() string {
	switch a {
	case Capture:
		return farmapi.DeviceCamera
	case Resample:
		return farmapi.DeviceSensor
	default:
		return ""
	}
}

func (a Action) String() string {
	switch a {
	case Capture:
		return "capture"
	case Resample:
		return "resample"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction accepts a device name or an action name.
func ParseAction(s string) (Action, error) {
	switch s {
	case farmapi.DeviceCamera, "capture", "camera":
		return Capture, nil
	case farmapi.DeviceSensor, "resample", "sensor":
		return Resample, nil
	}
	return 0, farmerr.New(farmerr.KindUserInputMissing, "trigger", fmt.Sprintf("unknown device %q (use cam or esp32)", s))
}

type State int

const (
	StateIdle State = iota
	StateTriggering
	StateScheduled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTriggering:
		return "triggering"
	case StateScheduled:
		return "scheduled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Triggerer is the device trigger collaborator.
type Triggerer interface {
	Trigger(ctx context.Context, device string) (*farmapi.TriggerAck, error)
}

// Refreshers are the follow-up fetches run after a successful trigger.
type Refreshers struct {
	Gallery func(ctx context.Context) error
	Sensor  func(ctx context.Context) error
}

// Timer is the part of *time.Timer the orchestrator needs.
type Timer interface {
	Stop() bool
}

type Option func(*Orchestrator)

// WithAfterFunc replaces time.AfterFunc for scheduling follow-ups.
func WithAfterFunc(fn func(d time.Duration, f func()) Timer) Option {
	return func(o *Orchestrator) {
		o.afterFunc = fn
	}
}

type Orchestrator struct {
	api       Triggerer
	refresh   Refreshers
	log       *log.Logger
	afterFunc func(d time.Duration, f func()) Timer
}

func New(api Triggerer, refresh Refreshers, logger *log.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	o := &Orchestrator{
		api:     api,
		refresh: refresh,
		log:     logger.WithPrefix("Trigger"),
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Task tracks one trigger from request to follow-up.
type Task struct {
	ID     uuid.UUID
	Action Action

	mu       sync.Mutex
	ack      *farmapi.TriggerAck
	history  []State
	err      error
	followUp error
	done     chan struct{}
}

func newTask(a Action) *Task {
	return &Task{
		ID:      uuid.New(),
		Action:  a,
		history: []State{StateIdle},
		done:    make(chan struct{}),
	}
}

func (t *Task) move(s State) {
	t.mu.Lock()
	t.history = append(t.history, s)
	t.mu.Unlock()
}

func (t *Task) finish() {
	t.move(StateIdle)
	close(t.done)
}

// State is the task's current state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history[len(t.history)-1]
}

// History returns every state the task has passed through, in order.
func (t *Task) History() []State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]State(nil), t.history...)
}

// Done is closed when the task is back to idle, after the follow-up ran or
// the trigger failed.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) Ack() *farmapi.TriggerAck {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ack
}

// Err is the trigger failure, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// FollowUpErr is the error of the delayed refresh, valid once Done is closed.
func (t *Task) FollowUpErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.followUp
}

// Trigger sends the device trigger. On an ok answer it schedules exactly one
// follow-up refresh after FollowUpDelay and returns immediately; otherwise it
// returns the error and schedules nothing. Concurrent triggers are not
// serialized.
func (o *Orchestrator) Trigger(ctx context.Context, action Action) (*Task, error) {
	device := action.Device()
	if device == "" {
		return nil, farmerr.New(farmerr.KindUserInputMissing, "trigger", "unknown action "+action.String())
	}

	task := newTask(action)
	task.move(StateTriggering)

	ack, err := o.api.Trigger(ctx, device)
	task.mu.Lock()
	task.ack = ack
	task.mu.Unlock()
	if err == nil && !ack.OK() {
		err = farmerr.New(farmerr.KindServerRejected, "trigger", "device trigger was not accepted")
	}
	if err != nil {
		err = farmerr.Wrap(farmerr.KindTransport, "trigger", "trigger "+device, err)
		task.mu.Lock()
		task.err = err
		task.mu.Unlock()
		task.move(StateFailed)
		task.finish()
		o.log.Warn("trigger failed", "action", action, "err", err)
		return task, err
	}

	task.move(StateScheduled)
	o.log.Info("trigger accepted", "action", action, "message", ack.Message, "follow_up", FollowUpDelay)

	// The follow-up outlives the caller's context.
	followCtx := context.WithoutCancel(ctx)
	o.afterFunc(FollowUpDelay, func() {
		ferr := o.runFollowUp(followCtx, action)
		task.mu.Lock()
		task.followUp = ferr
		task.mu.Unlock()
		task.finish()
	})
	return task, nil
}

func (o *Orchestrator) runFollowUp(ctx context.Context, action Action) error {
	var fn func(context.Context) error
	switch action {
	case Capture:
		fn = o.refresh.Gallery
	case Resample:
		fn = o.refresh.Sensor
	}
	if fn == nil {
		return nil
	}
	if err := fn(ctx); err != nil {
		o.log.Warn("follow-up refresh failed", "action", action, "err", err)
		return err
	}
	o.log.Debug("follow-up refresh done", "action", action)
	return nil
}
