// Package ports defines the interfaces that connect the application layer to
// infrastructure adapters.
//
// # Port Interfaces
//
//   - [Device]: lifecycle shared by every waveform generator session
//   - [TriggeredOutput]: retriggerable per-burst output used by the streaming pipeline
//   - [ScriptedOutput]: named-buffer playback used by chunked playback
//   - [StateRepository]: persists and loads playback progress
//   - [Logger]: structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (simulated generator, SCPI over serial, JSON files, zerolog).
package ports
