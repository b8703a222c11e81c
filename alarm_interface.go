package main

// AlarmOutput sounds the operator console alarm. A TOD clock regression
// rings it on the way down; the console can ring it by hand.
type AlarmOutput interface {
	Ring() error
	Close() error
	IsStarted() bool
}
