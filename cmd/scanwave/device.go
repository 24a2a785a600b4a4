package main

import (
	"github.com/bft-labs/scanwave/internal/adapters/serialgen"
	"github.com/bft-labs/scanwave/internal/adapters/sim"
	"github.com/bft-labs/scanwave/internal/cliconfig"
	"github.com/bft-labs/scanwave/internal/ports"
)

func (c *cli) serialConfig() serialgen.Config {
	return serialgen.Config{
		PortName: c.cfg.DevicePort,
		BaudRate: c.cfg.BaudRate,
	}
}

// triggeredOpener returns the device used for streaming. The simulated
// device is returned too so callers can report what it recorded.
func (c *cli) triggeredOpener() (ports.TriggeredOpener, *sim.Device) {
	if c.cfg.Device == cliconfig.DeviceSerial {
		return serialgen.TriggeredOpener(c.serialConfig(), c.logger.With("serialgen")), nil
	}
	dev := sim.New(sim.WithAutoTrigger(c.cfg.SimTriggerInterval))
	return dev.TriggeredOpener(), dev
}

// reportSim logs what the simulated device saw. dev is nil for real hardware.
func (c *cli) reportSim(dev *sim.Device) {
	if dev == nil {
		return
	}
	source, edge, armed := dev.TriggerSource()
	c.logger.Info("simulated device",
		ports.String("trigger", source),
		ports.String("edge", edge.String()),
		ports.Bool("armed", armed),
		ports.Int("sessions", dev.Sessions()),
		ports.Int("writes", len(dev.Writes())),
		ports.Int("outputs", len(dev.Outputs())),
		ports.Int("missed_triggers", dev.Missed()),
		ports.Bool("open", dev.IsOpen()),
	)
}

// scriptedOpener returns the device used for chunk playback.
func (c *cli) scriptedOpener() (ports.ScriptedOpener, *sim.Device) {
	if c.cfg.Device == cliconfig.DeviceSerial {
		return serialgen.ScriptedOpener(c.serialConfig(), c.logger.With("serialgen")), nil
	}
	dev := sim.New()
	return dev.ScriptedOpener(), dev
}
