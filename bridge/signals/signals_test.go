package signals

import (
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManual(t *testing.T) {
	var m Manual
	a := make(chan os.Signal, 1)
	b := make(chan os.Signal, 1)
	m.Notify(a)
	m.Notify(b)
	assert.Equal(t, 2, m.Subscribers())

	m.Raise(os.Interrupt)
	assert.Equal(t, os.Interrupt, <-a)
	assert.Equal(t, os.Interrupt, <-b)

	m.Stop(a)
	assert.Equal(t, 1, m.Subscribers())
	m.Raise(syscall.SIGTERM)
	assert.Equal(t, syscall.SIGTERM, <-b)
	assert.Empty(t, a)
}

func TestManualRaiseDoesNotBlock(t *testing.T) {
	var m Manual
	full := make(chan os.Signal)
	m.Notify(full)
	// nothing is receiving, so this must drop the signal instead of blocking
	m.Raise(os.Interrupt)
}
