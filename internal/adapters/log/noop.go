package log

import "github.com/bft-labs/scanwave/internal/ports"

// Discard is a ports.Logger that drops every event.
var Discard ports.Logger = discard{}

type discard struct{}

func (discard) Debug(string, ...ports.Field) {}
func (discard) Info(string, ...ports.Field)  {}
func (discard) Warn(string, ...ports.Field)  {}
func (discard) Error(string, ...ports.Field) {}
