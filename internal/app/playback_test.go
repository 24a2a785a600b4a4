package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bft-labs/scanwave/internal/adapters/sim"
	"github.com/bft-labs/scanwave/internal/domain"
	"github.com/bft-labs/scanwave/internal/ports"
	"github.com/bft-labs/scanwave/internal/waveform"
)

// memStateRepo implements ports.StateRepository in memory.
type memStateRepo struct {
	mu     sync.Mutex
	state  domain.PlaybackState
	saves  int
	clears int
}

func (m *memStateRepo) Load(ctx context.Context) (domain.PlaybackState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memStateRepo) Save(ctx context.Context, state domain.PlaybackState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.saves++
	return nil
}

func (m *memStateRepo) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = domain.PlaybackState{}
	m.clears++
	return nil
}

// failingScript wraps a simulated device and rejects scripts.
type failingScript struct {
	*sim.Device
	err error
}

func (f failingScript) WriteScript(name string, repeat int) error {
	return f.err
}

func writeWaveform(t *testing.T, samples []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wave.bin")
	if err := waveform.Persist(path, samples); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	return path
}

func testPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate:   1e6,
		MaxChunkSize: 40,
		Repeat:       2,
	}
}

func TestPlayer_PlaysEveryChunk(t *testing.T) {
	path := writeWaveform(t, ramp(12))
	dev := sim.New()
	repo := &memStateRepo{}

	p := NewPlayer(testPlayerConfig(), dev.ScriptedOpener(), repo, &mockLogger{})
	state, err := p.Play(context.Background(), path)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	// 96 bytes, largest divisor <= 40 is 32: three chunks of four samples
	if dev.Sessions() != 3 {
		t.Errorf("Sessions() = %d, want 3", dev.Sessions())
	}
	outputs := dev.Outputs()
	if len(outputs) != 3 {
		t.Fatalf("got %d outputs, want 3", len(outputs))
	}
	for i, out := range outputs {
		if len(out) != 8 {
			t.Fatalf("output %d has %d samples, want 8 (4 x repeat 2)", i, len(out))
		}
		if out[0] != float64(i*4) || out[4] != float64(i*4) {
			t.Errorf("output %d = %v", i, out)
		}
	}

	if state.ChunksPlayed != 3 || !state.Done() || state.ChunkSize != 32 {
		t.Errorf("state = %+v", state)
	}
	if repo.state.NextOffset != 96 {
		t.Errorf("saved NextOffset = %d, want 96", repo.state.NextOffset)
	}
	if dev.IsOpen() {
		t.Error("session left open")
	}
}

func TestPlayer_PlayDiscardsSavedProgress(t *testing.T) {
	path := writeWaveform(t, ramp(12))
	dev := sim.New()
	repo := &memStateRepo{state: domain.PlaybackState{
		Path: path, TotalBytes: 96, ChunkSize: 32, NextOffset: 64, ChunksPlayed: 2,
	}}
	failing := failingScript{Device: dev, err: errors.New("script rejected")}
	open := func(ctx context.Context) (ports.ScriptedOutput, error) {
		if err := dev.Open(ctx); err != nil {
			return nil, err
		}
		return failing, nil
	}

	p := NewPlayer(testPlayerConfig(), open, repo, &mockLogger{})
	if _, err := p.Play(context.Background(), path); err == nil {
		t.Fatal("Play() error = nil, want script error")
	}
	if repo.clears != 1 {
		t.Errorf("clears = %d, want 1", repo.clears)
	}
	if repo.state != (domain.PlaybackState{}) {
		t.Errorf("stale state survived a fresh run: %+v", repo.state)
	}

	// Resume keeps the saved offset.
	repo.state = domain.PlaybackState{Path: path, TotalBytes: 96, ChunkSize: 32, NextOffset: 64, ChunksPlayed: 2}
	if _, err := NewPlayer(testPlayerConfig(), dev.ScriptedOpener(), repo, &mockLogger{}).Resume(context.Background(), path); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if repo.clears != 1 {
		t.Errorf("Resume cleared state, clears = %d", repo.clears)
	}
}

func TestPlayer_NilLogger(t *testing.T) {
	path := writeWaveform(t, ramp(4))
	dev := sim.New()

	state, err := NewPlayer(testPlayerConfig(), dev.ScriptedOpener(), nil, nil).Play(context.Background(), path)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !state.Done() {
		t.Errorf("state = %+v, want done", state)
	}
}

func TestPlayer_EmptyFileAbortsBeforeDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	dev := sim.New()

	p := NewPlayer(testPlayerConfig(), dev.ScriptedOpener(), nil, &mockLogger{})
	_, err := p.Play(context.Background(), path)
	if !errors.Is(err, domain.ErrNoValidChunk) {
		t.Fatalf("Play() error = %v, want ErrNoValidChunk", err)
	}
	if dev.Sessions() != 0 {
		t.Errorf("Sessions() = %d, want 0", dev.Sessions())
	}
}

func TestPlayer_Resume(t *testing.T) {
	path := writeWaveform(t, ramp(12))

	tests := []struct {
		name       string
		saved      domain.PlaybackState
		wantFirst  float64
		wantChunks int
	}{
		{
			name:       "matching state",
			saved:      domain.PlaybackState{Path: path, TotalBytes: 96, ChunkSize: 32, NextOffset: 32, ChunksPlayed: 1},
			wantFirst:  4,
			wantChunks: 3,
		},
		{
			name:       "other file",
			saved:      domain.PlaybackState{Path: "other.bin", TotalBytes: 96, ChunkSize: 32, NextOffset: 32, ChunksPlayed: 1},
			wantFirst:  0,
			wantChunks: 3,
		},
		{
			name:       "other chunk size",
			saved:      domain.PlaybackState{Path: path, TotalBytes: 96, ChunkSize: 16, NextOffset: 32, ChunksPlayed: 2},
			wantFirst:  0,
			wantChunks: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := sim.New()
			repo := &memStateRepo{state: tt.saved}

			p := NewPlayer(testPlayerConfig(), dev.ScriptedOpener(), repo, &mockLogger{})
			state, err := p.Resume(context.Background(), path)
			if err != nil {
				t.Fatalf("Resume() error = %v", err)
			}

			outputs := dev.Outputs()
			if len(outputs) == 0 || outputs[0][0] != tt.wantFirst {
				t.Errorf("first output = %v, want start %v", outputs, tt.wantFirst)
			}
			if state.ChunksPlayed != tt.wantChunks {
				t.Errorf("ChunksPlayed = %d, want %d", state.ChunksPlayed, tt.wantChunks)
			}
		})
	}
}

func TestPlayer_ResumeCompleted(t *testing.T) {
	path := writeWaveform(t, ramp(4))
	dev := sim.New()
	repo := &memStateRepo{state: domain.PlaybackState{Path: path, TotalBytes: 32, ChunkSize: 32, NextOffset: 32, ChunksPlayed: 1}}

	p := NewPlayer(testPlayerConfig(), dev.ScriptedOpener(), repo, &mockLogger{})
	if _, err := p.Resume(context.Background(), path); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if dev.Sessions() != 0 {
		t.Errorf("Sessions() = %d, want 0", dev.Sessions())
	}
}

func TestPlayer_DeviceErrorReleasesSession(t *testing.T) {
	path := writeWaveform(t, ramp(12))
	dev := sim.New()
	boom := errors.New("script memory full")
	open := func(ctx context.Context) (ports.ScriptedOutput, error) {
		if err := dev.Open(ctx); err != nil {
			return nil, err
		}
		return failingScript{Device: dev, err: boom}, nil
	}
	repo := &memStateRepo{}

	p := NewPlayer(testPlayerConfig(), open, repo, &mockLogger{})
	_, err := p.Play(context.Background(), path)
	if !errors.Is(err, boom) {
		t.Fatalf("Play() error = %v, want %v", err, boom)
	}
	if dev.IsOpen() {
		t.Error("session not released after error")
	}
	if repo.saves != 0 {
		t.Errorf("state saved %d times, want 0", repo.saves)
	}
}

func TestPlayer_CanceledContext(t *testing.T) {
	path := writeWaveform(t, ramp(12))
	dev := sim.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPlayer(testPlayerConfig(), dev.ScriptedOpener(), nil, &mockLogger{})
	if _, err := p.Play(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("Play() error = %v, want context.Canceled", err)
	}
	if dev.Sessions() != 0 {
		t.Errorf("Sessions() = %d, want 0", dev.Sessions())
	}
}

func TestPlayer_InvalidSampleRate(t *testing.T) {
	path := writeWaveform(t, ramp(4))
	cfg := testPlayerConfig()
	cfg.SampleRate = 0

	p := NewPlayer(cfg, sim.New().ScriptedOpener(), nil, &mockLogger{})
	if _, err := p.Play(context.Background(), path); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Play() error = %v, want ErrConfiguration", err)
	}
}
