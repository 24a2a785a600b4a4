package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	logAdapter "github.com/bft-labs/scanwave/internal/adapters/log"
	"github.com/bft-labs/scanwave/internal/chunk"
	"github.com/bft-labs/scanwave/internal/domain"
	"github.com/bft-labs/scanwave/internal/ports"
)

// DefaultWaveformName is the on-board buffer name used for chunk playback.
const DefaultWaveformName = "chunk"

// PlayerConfig contains configuration for sequential chunk playback.
type PlayerConfig struct {
	SampleRate   float64
	MaxChunkSize int64

	// Repeat is how many times the script plays each chunk
	Repeat int

	WaitTimeout  time.Duration
	WaveformName string
}

// Player plays a waveform file one divisor-bounded chunk at a time, opening a
// fresh device session per chunk. Peak memory is one chunk.
type Player struct {
	config    PlayerConfig
	open      ports.ScriptedOpener
	stateRepo ports.StateRepository
	logger    ports.Logger
}

// NewPlayer creates a player. stateRepo may be nil to disable progress tracking.
func NewPlayer(config PlayerConfig, open ports.ScriptedOpener, stateRepo ports.StateRepository, logger ports.Logger) *Player {
	if config.MaxChunkSize == 0 {
		config.MaxChunkSize = chunk.DefaultMaxChunkSize
	}
	if config.Repeat <= 0 {
		config.Repeat = 1
	}
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = DefaultWaitTimeout
	}
	if config.WaveformName == "" {
		config.WaveformName = DefaultWaveformName
	}
	if logger == nil {
		logger = logAdapter.Discard
	}
	return &Player{
		config:    config,
		open:      open,
		stateRepo: stateRepo,
		logger:    logger,
	}
}

// Play plays path from the beginning.
func (p *Player) Play(ctx context.Context, path string) (domain.PlaybackState, error) {
	return p.play(ctx, path, false)
}

// Resume continues an interrupted run of path from the saved offset. A saved
// state for another file, size or chunk size is ignored.
func (p *Player) Resume(ctx context.Context, path string) (domain.PlaybackState, error) {
	return p.play(ctx, path, true)
}

func (p *Player) play(ctx context.Context, path string, resume bool) (domain.PlaybackState, error) {
	if p.config.SampleRate <= 0 {
		return domain.PlaybackState{}, fmt.Errorf("%w: sample rate must be positive", domain.ErrConfiguration)
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.PlaybackState{}, err
	}
	total := info.Size()

	size, err := chunk.Size(total, p.config.MaxChunkSize)
	if err != nil {
		return domain.PlaybackState{}, err
	}

	state := domain.PlaybackState{Path: path, TotalBytes: total, ChunkSize: size}
	if resume {
		state = p.resumeState(ctx, state)
		if state.Done() {
			p.logger.Info("playback already complete", ports.String("path", path))
			return state, nil
		}
	} else {
		p.clear()
	}

	r, err := chunk.Open(path, size, state.NextOffset)
	if err != nil {
		return state, err
	}
	defer r.Close()

	p.logger.Info("chunk playback started",
		ports.String("path", path),
		ports.Int64("total_bytes", r.Total()),
		ports.Int64("chunk_size", size),
		ports.Int64("chunks", chunk.Count(total, size)),
		ports.Int64("offset", state.NextOffset),
	)

	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		c, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return state, err
		}

		start := time.Now()
		if err := p.playChunk(ctx, c); err != nil {
			return state, fmt.Errorf("chunk %d at offset %d: %w", c.Index, c.Offset, err)
		}

		state.NextOffset = r.Offset()
		state.ChunksPlayed++
		p.logger.Debug("chunk played",
			ports.Int("index", c.Index),
			ports.Int64("offset", c.Offset),
			ports.Int64("bytes", c.Bytes()),
			ports.Duration("duration", time.Since(start)),
		)
		p.save(ctx, state)
	}

	// trailing bytes that do not form a whole sample are never played
	state.NextOffset = total
	p.save(ctx, state)

	p.logger.Info("chunk playback finished",
		ports.String("path", path),
		ports.Int("chunks", state.ChunksPlayed),
	)
	return state, nil
}

func (p *Player) resumeState(ctx context.Context, fresh domain.PlaybackState) domain.PlaybackState {
	if p.stateRepo == nil {
		return fresh
	}
	saved, err := p.stateRepo.Load(ctx)
	if err != nil {
		p.logger.Error("failed to load playback state", ports.Err(err))
		return fresh
	}
	if !saved.Matches(fresh.Path, fresh.TotalBytes) || saved.ChunkSize != fresh.ChunkSize {
		return fresh
	}

	p.logger.Info("resuming playback",
		ports.Int64("offset", saved.NextOffset),
		ports.Int("chunks_played", saved.ChunksPlayed),
	)
	return saved
}

// clear drops progress left by an earlier run so a fresh run interrupted
// before its first chunk cannot be resumed from stale state.
func (p *Player) clear() {
	if p.stateRepo == nil {
		return
	}
	if err := p.stateRepo.Clear(); err != nil {
		p.logger.Warn("failed to clear playback state", ports.Err(err))
	}
}

func (p *Player) save(ctx context.Context, state domain.PlaybackState) {
	if p.stateRepo == nil {
		return
	}
	if err := p.stateRepo.Save(ctx, state); err != nil {
		p.logger.Error("failed to save playback state", ports.Err(err))
	}
}

// playChunk runs one scoped device session for c.
func (p *Player) playChunk(ctx context.Context, c chunk.Chunk) error {
	return withSession[ports.ScriptedOutput](ctx, p.open, func(dev ports.ScriptedOutput) error {
		n := len(c.Samples)
		cfg := ports.DeviceConfig{
			SampleRate:        p.config.SampleRate,
			SamplesPerSegment: n,
			Finite:            true,
		}
		if err := dev.Configure(cfg); err != nil {
			return fmt.Errorf("configure device: %w", err)
		}
		if err := dev.AllocateWaveform(p.config.WaveformName, n); err != nil {
			return fmt.Errorf("allocate waveform: %w", err)
		}
		if err := dev.WriteWaveform(p.config.WaveformName, c.Samples); err != nil {
			return fmt.Errorf("write waveform: %w", err)
		}
		if err := dev.WriteScript(p.config.WaveformName, p.config.Repeat); err != nil {
			return fmt.Errorf("write script: %w", err)
		}
		if err := dev.Start(); err != nil {
			return fmt.Errorf("start device: %w", err)
		}
		return p.waitDone(ctx, dev)
	})
}

// waitDone waits for the output to complete, re-waiting on timeouts until
// ctx is done.
func (p *Player) waitDone(ctx context.Context, dev ports.Device) error {
	for {
		err := dev.WaitUntilDone(p.config.WaitTimeout)
		if !errors.Is(err, ports.ErrWaitTimeout) {
			if err != nil {
				return fmt.Errorf("wait for output: %w", err)
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
}
