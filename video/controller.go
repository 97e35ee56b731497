package video

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"holecenter/util"
	"holecenter/video/sink"
	"holecenter/video/source"
)

type State int

const (
	Idle State = iota
	SourceChosen
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SourceChosen:
		return "source chosen"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var ErrInvalidTransition = errors.New("invalid state transition")

// Controller owns the session lifecycle:
//
//	Idle/Stopped --Choose--> SourceChosen --Start--> Running --(stop|quit|eof)--> Stopped
//
// At most one run is active at a time, and the chosen source belongs to the
// controller until a run takes it over.
type Controller struct {
	Opener    source.Opener
	Processor *Processor

	RunListeners []RunListener

	// NewRunSinks creates sinks that live for a single run, such as a
	// recording. Optional.
	NewRunSinks func(src source.Source) []sink.Sink

	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(State)

	state  State
	sel    source.Selection
	src    source.Source
	cancel context.CancelFunc
	done   *util.Event
	last   *RunSummary
	l      sync.Mutex

	// chooseL serializes Choose while the opener runs unlocked.
	chooseL sync.Mutex
}

func NewController(o source.Opener, p *Processor) *Controller {
	return &Controller{
		Opener:    o,
		Processor: p,
	}
}

func (c *Controller) State() State {
	c.l.Lock()
	defer c.l.Unlock()
	return c.state
}

// Last returns the summary of the most recently finished run, if any.
func (c *Controller) Last() *RunSummary {
	c.l.Lock()
	defer c.l.Unlock()
	return c.last
}

func (c *Controller) transition(s State) {
	c.state = s
	log.Debugf("Controller is %v", s)
}

func (c *Controller) changed(s State) {
	if c.OnStateChange != nil {
		c.OnStateChange(s)
	}
}

// Choose opens the selected source. Choosing again before Start releases the
// previously opened source. On error no source is held and the controller
// returns to Idle. The source is opened without holding the state lock.
func (c *Controller) Choose(sel source.Selection) error {
	c.chooseL.Lock()
	defer c.chooseL.Unlock()

	c.l.Lock()
	if c.state == Running {
		c.l.Unlock()
		return fmt.Errorf("%w: cannot choose a source while running", ErrInvalidTransition)
	}
	prev := c.src
	c.src = nil
	if prev != nil {
		c.transition(Idle)
	}
	c.l.Unlock()

	if prev != nil {
		prev.Close()
	}

	src, err := sel.Open(c.Opener)
	if err != nil {
		c.l.Lock()
		c.transition(Idle)
		c.l.Unlock()
		c.changed(Idle)
		return err
	}

	c.l.Lock()
	c.sel = sel
	c.src = src
	c.transition(SourceChosen)
	c.l.Unlock()

	log.Infof("Source chosen: %v", sel)
	c.changed(SourceChosen)
	return nil
}

// run is a prepared pass over the chosen source.
type run struct {
	ctx      context.Context
	cancel   context.CancelFunc
	done     *util.Event
	summary  *RunSummary
	src      source.Source
	runSinks []sink.Sink
}

// begin moves SourceChosen to Running and hands out the chosen source.
func (c *Controller) begin(ctx context.Context) (*run, error) {
	c.l.Lock()
	if c.state != SourceChosen {
		s := c.state
		c.l.Unlock()
		return nil, fmt.Errorf("%w: cannot start while %v", ErrInvalidTransition, s)
	}
	r := &run{
		done: util.NewEvent(),
		src:  c.src,
	}
	c.src = nil

	r.ctx, r.cancel = context.WithCancel(ctx)
	c.cancel = r.cancel
	c.done = r.done
	r.summary = &RunSummary{
		RunID:     uuid.NewString(),
		Selection: c.sel,
		Source:    r.src.Describe(),
		StartedAt: time.Now(),
	}
	c.transition(Running)
	c.l.Unlock()

	log.Infof("Starting run %v over %v", r.summary.RunID, r.summary.Source)
	for _, l := range c.RunListeners {
		l.RunStarted(r.summary)
	}
	c.changed(Running)

	if c.NewRunSinks != nil {
		r.runSinks = c.NewRunSinks(r.src)
	}
	return r, nil
}

// execute runs the frame loop on the calling goroutine.
func (c *Controller) execute(r *run) {
	defer r.done.Notify()
	defer r.cancel()

	c.Processor.Run(r.ctx, r.summary, r.src, r.runSinks...)

	c.l.Lock()
	c.last = r.summary
	c.cancel = nil
	c.transition(Stopped)
	c.l.Unlock()

	for _, l := range c.RunListeners {
		l.RunEnded(r.summary)
	}
	c.changed(Stopped)
}

// Start hands the chosen source to the processor on a new goroutine.
func (c *Controller) Start(ctx context.Context) error {
	r, err := c.begin(ctx)
	if err != nil {
		return err
	}
	go c.execute(r)
	return nil
}

// Stop cancels the active run. The frame loop exits before its next read.
func (c *Controller) Stop() error {
	c.l.Lock()
	defer c.l.Unlock()
	if c.state != Running || c.cancel == nil {
		return fmt.Errorf("%w: nothing is running", ErrInvalidTransition)
	}
	log.Infof("Stop requested")
	c.cancel()
	return nil
}

// Wait blocks until the current run, if any, has ended and returns its
// summary.
func (c *Controller) Wait() *RunSummary {
	c.l.Lock()
	done := c.done
	c.l.Unlock()
	if done != nil {
		done.Wait()
	}
	return c.Last()
}

// Run chooses sel and runs it to completion on the calling goroutine, which
// keeps display calls on that goroutine's thread. Stop may be called from
// elsewhere.
func (c *Controller) Run(ctx context.Context, sel source.Selection) (*RunSummary, error) {
	if err := c.Choose(sel); err != nil {
		return nil, err
	}
	r, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	c.execute(r)
	return r.summary, nil
}

// Close stops any active run and releases a chosen but unstarted source.
func (c *Controller) Close() {
	c.Stop()
	c.Wait()
	c.l.Lock()
	defer c.l.Unlock()
	if c.src != nil {
		c.src.Close()
		c.src = nil
	}
}
