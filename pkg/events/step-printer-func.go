package events

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"gopkg.in/yaml.v3"
)

// StepPrinterFunc returns a watermill handler that echoes streamed
// fragments to w as they arrive. If name is non-empty it is printed as a
// prefix before the first fragment.
func StepPrinterFunc(name string, w io.Writer) func(msg *message.Message) error {
	isFirst := true

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch p_ := e.(type) {
		case *EventPartialCompletion:
			if isFirst && name != "" {
				isFirst = false
				if _, err := fmt.Fprintf(w, "%s: ", name); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s", p_.Delta); err != nil {
				return err
			}

		case *EventFinal:
			isFirst = true
			if !strings.HasSuffix(p_.Text, "\n") {
				if _, err := fmt.Fprintf(w, "\n"); err != nil {
					return err
				}
			}

		case *EventInterrupt:
			isFirst = true
			if _, err := fmt.Fprintf(w, "\n"); err != nil {
				return err
			}

		case *EventStart, *EventError:
			// errors are rendered by the interaction driver, not the echo path
		}

		return nil
	}
}

// DumpEventsFunc returns a handler that renders every event as YAML on w.
// Only hooked up at debug log levels.
func DumpEventsFunc(w io.Writer) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		var s map[string]interface{}
		if err := json.Unmarshal(msg.Payload, &s); err != nil {
			return err
		}
		v, err := yaml.Marshal(s)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "---\n%s", v); err != nil {
			return err
		}
		return nil
	}
}
