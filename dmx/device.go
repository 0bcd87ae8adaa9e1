// Package dmx drives DMX512 light fixtures through an FTDI USB interface.
package dmx

import (
	"fmt"

	"github.com/ziutek/ftdi"
)

const (
	vendorID  = 0x0403
	productID = 0x6001
	baudRate  = 250000

	// Channels is the number of addressable channels of a universe.
	Channels = 512
)

type Device struct {
	dev *ftdi.Device
	// frame[0] is the start code, frame[n] the value of channel n.
	frame []byte
}

func OpenDevice() (*Device, error) {
	dev, err := ftdi.OpenFirst(vendorID, productID, ftdi.ChannelAny)
	if err != nil {
		return nil, fmt.Errorf("could not open ftdi device: %w", err)
	}

	if err := dev.Reset(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("could not reset ftdi device: %w", err)
	}

	if err := dev.SetBaudrate(baudRate); err != nil {
		dev.Close()
		return nil, fmt.Errorf("could not set baud rate for ftdi device: %w", err)
	}

	if err := dev.SetLineProperties(ftdi.DataBits8, ftdi.StopBits2, ftdi.ParityNone); err != nil {
		dev.Close()
		return nil, fmt.Errorf("could not set line properties for ftdi device: %w", err)
	}

	if err := dev.SetFlowControl(ftdi.FlowCtrlDisable); err != nil {
		dev.Close()
		return nil, fmt.Errorf("could not set flow control for ftdi device: %w", err)
	}

	return &Device{
		dev:   dev,
		frame: make([]byte, Channels+1),
	}, nil
}

func (d *Device) Close() error {
	return d.dev.Close()
}

// SetChannel stages a channel value until the next Render.
func (d *Device) SetChannel(channel int, value byte) error {
	if channel < 1 || channel > Channels {
		return fmt.Errorf("dmx channel %d out of range [1, %d]", channel, Channels)
	}
	d.frame[channel] = value
	return nil
}

// Render sends the staged universe, preceded by a break.
func (d *Device) Render() error {
	if err := d.dev.SetLineProperties2(ftdi.DataBits8, ftdi.StopBits2, ftdi.ParityNone, ftdi.BreakOn); err != nil {
		return fmt.Errorf("could not enable break mode for ftdi device: %w", err)
	}

	if err := d.dev.SetLineProperties2(ftdi.DataBits8, ftdi.StopBits2, ftdi.ParityNone, ftdi.BreakOff); err != nil {
		return fmt.Errorf("could not disable break mode for ftdi device: %w", err)
	}

	if _, err := d.dev.Write(d.frame); err != nil {
		return fmt.Errorf("could not write frame to channel: %w", err)
	}

	return nil
}
