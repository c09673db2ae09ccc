package services

import (
	"log"
	"sync"
)

type EventType string

const (
	EventEnrolled          EventType = "course_enrolled"
	EventCertificateIssued EventType = "certificate_issued"
	EventCoursePublished   EventType = "course_published"
)

// Event is a notification addressed to a user (or broadcast when UserID
// is zero, as for course announcements).
type Event struct {
	Type        EventType
	UserID      uint
	CourseID    uint
	Certificate string
	Message     string
}

// Notifier delivers a single event to the outside world (email, push,
// whatever the deployment wires in).
type Notifier interface {
	Send(event Event) error
}

// EventSink accepts events without blocking the caller. Services depend
// on this rather than on Notifier directly so delivery stays
// fire-and-forget: a failed or dropped notification never fails the
// operation that produced it.
type EventSink interface {
	Dispatch(event Event)
}

// LogNotifier writes events to the application log. It stands in for a
// real delivery channel in development and tests.
type LogNotifier struct {
	Logger *log.Logger
}

func (n *LogNotifier) Send(event Event) error {
	n.Logger.Printf("notify user=%d course=%d type=%s: %s", event.UserID, event.CourseID, event.Type, event.Message)
	return nil
}

// Dispatcher feeds events to a Notifier from a bounded queue. Send
// errors are logged and swallowed; when the queue is full the event is
// dropped rather than blocking the request that triggered it.
type Dispatcher struct {
	notifier Notifier
	logger   *log.Logger
	queue    chan Event
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, logger *log.Logger) *Dispatcher {
	d := &Dispatcher{
		notifier: notifier,
		logger:   logger,
		queue:    make(chan Event, 64),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		if err := d.notifier.Send(event); err != nil {
			d.logger.Printf("notification %s for user %d failed: %v", event.Type, event.UserID, err)
		}
	}
}

func (d *Dispatcher) Dispatch(event Event) {
	select {
	case d.queue <- event:
	default:
		d.logger.Printf("notification queue full, dropping %s for user %d", event.Type, event.UserID)
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}
