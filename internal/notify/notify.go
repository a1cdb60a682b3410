package notify

import (
	"github.com/sirupsen/logrus"
)

// Severity classifies an alert. The engine decides severity; sinks only
// deliver.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Mode is the three-way notification switch.
type Mode string

const (
	ModeSilent       Mode = "none"
	ModeWarningsOnly Mode = "on_error"
	ModeAll          Mode = "always"
)

// ParseMode maps a configured string onto a Mode, defaulting to ModeAll.
func ParseMode(raw string) Mode {
	switch raw {
	case string(ModeSilent), "silent":
		return ModeSilent
	case string(ModeWarningsOnly), "warnings", "warnings_only":
		return ModeWarningsOnly
	default:
		return ModeAll
	}
}

// Notifier accepts user-visible alerts triggered by state transitions.
type Notifier interface {
	Send(title, body string, severity Severity)
}

// Dispatcher applies the notification mode and fans an alert out to sinks.
type Dispatcher struct {
	mode  Mode
	sinks []Notifier
}

func NewDispatcher(mode Mode, sinks ...Notifier) *Dispatcher {
	return &Dispatcher{mode: mode, sinks: sinks}
}

func (d *Dispatcher) Send(title, body string, severity Severity) {
	switch d.mode {
	case ModeSilent:
		return
	case ModeWarningsOnly:
		if severity != SeverityWarning {
			return
		}
	}
	for _, sink := range d.sinks {
		sink.Send(title, body, severity)
	}
}

// LogNotifier delivers alerts to the application log.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(title, body string, severity Severity) {
	entry := n.logger.WithField("notification", title)
	if severity == SeverityWarning {
		entry.Warn(body)
		return
	}
	entry.Info(body)
}

var (
	_ Notifier = (*Dispatcher)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
