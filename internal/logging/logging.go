// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
)

// Setup sets the level and formatter of the standard logrus logger. format is
// "text" or "json".
func Setup(out io.Writer, level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", format)
	}

	log.SetOutput(out)
	log.SetLevel(lvl)
	return nil
}

// ErrorFields flattens the key/value details attached to err with
// errors.WithDetails into log fields.
func ErrorFields(err error) log.Fields {
	fields := log.Fields{}
	details := errors.GetDetails(err)
	for i := 0; i+1 < len(details); i += 2 {
		key, ok := details[i].(string)
		if !ok {
			key = fmt.Sprint(details[i])
		}
		fields[key] = details[i+1]
	}
	return fields
}

// WithError returns an entry carrying err and its details.
func WithError(entry *log.Entry, err error) *log.Entry {
	return entry.WithFields(ErrorFields(err)).WithError(err)
}
