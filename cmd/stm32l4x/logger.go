package main

import "github.com/sirupsen/logrus"

// logrusLogger adapts a logrus logger to the driver's Logger interface,
// mapping the key/value pairs onto structured fields.
type logrusLogger struct {
	l *logrus.Logger
}

func (a logrusLogger) fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}

func (a logrusLogger) Debug(msg string, kv ...interface{}) {
	a.l.WithFields(a.fields(kv)).Debug(msg)
}

func (a logrusLogger) Info(msg string, kv ...interface{}) {
	a.l.WithFields(a.fields(kv)).Info(msg)
}

func (a logrusLogger) Warn(msg string, kv ...interface{}) {
	a.l.WithFields(a.fields(kv)).Warn(msg)
}

func (a logrusLogger) Error(msg string, kv ...interface{}) {
	a.l.WithFields(a.fields(kv)).Error(msg)
}
