package monitoring

import "time"

// Sink recebe as amostras de cada requisição. Erros são apenas logados.
type Sink interface {
	IncRequest(method, endpoint string, status int) error
	ObserveDuration(method, endpoint string, d time.Duration) error
	IncViolation(function, endpoint string) error
}

type nopSink struct{}

func (nopSink) IncRequest(string, string, int) error                { return nil }
func (nopSink) ObserveDuration(string, string, time.Duration) error { return nil }
func (nopSink) IncViolation(string, string) error                   { return nil }
