// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

// Package link provides the transports a session can run over: BLE via
// BlueZ, a WebSocket bridge, and a serial bridge. All of them deliver
// complete notification payloads on a frames channel and satisfy
// session.Transport.
package link

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/muka/go-bluetooth/api"
	"github.com/muka/go-bluetooth/bluez/profile/adapter"
	"github.com/muka/go-bluetooth/bluez/profile/agent"
	"github.com/muka/go-bluetooth/bluez/profile/device"
	"github.com/muka/go-bluetooth/bluez/profile/gatt"
	log "github.com/sirupsen/logrus"
)

// gattProfile is one service/characteristic layout. The heaters ship
// with two GATT layouts, and the fff0 service additionally appears with
// the write and notify roles swapped on HeaterCC firmware, so Connect
// probes each profile in order.
type gattProfile struct {
	service string
	write   string
	notify  string
}

var gattProfiles = []gattProfile{
	{
		service: "0000ffe0-0000-1000-8000-00805f9b34fb",
		write:   "0000ffe1-0000-1000-8000-00805f9b34fb",
		notify:  "0000ffe2-0000-1000-8000-00805f9b34fb",
	},
	{
		service: "0000fff0-0000-1000-8000-00805f9b34fb",
		write:   "0000fff1-0000-1000-8000-00805f9b34fb",
		notify:  "0000fff2-0000-1000-8000-00805f9b34fb",
	},
	{
		service: "0000fff0-0000-1000-8000-00805f9b34fb",
		write:   "0000fff2-0000-1000-8000-00805f9b34fb",
		notify:  "0000fff1-0000-1000-8000-00805f9b34fb",
	},
}

// BLE connects to a heater over BlueZ. Create with NewBLE; the device
// is not touched until Connect.
type BLE struct {
	adapterID string
	address   string
	logger    *log.Entry

	mu      sync.Mutex
	dev     *device.Device1
	write   *gatt.GattCharacteristic1
	notify  *gatt.GattCharacteristic1
	frames  chan []byte
	cancels []func()
}

// NewBLE builds a transport for the heater at the given MAC address on
// the named adapter ("hci0" when in doubt).
func NewBLE(adapterID, address string) *BLE {
	return &BLE{
		adapterID: adapterID,
		address:   address,
		logger:    log.WithFields(log.Fields{"adapter": adapterID, "peer": address}),
	}
}

func (b *BLE) Address() string { return b.address }

func (b *BLE) Frames() <-chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Connect discovers the device, connects, resolves a known GATT
// profile, and subscribes to notifications. Reconnecting tears down
// the previous link first.
func (b *BLE) Connect(ctx context.Context) error {
	b.teardown()

	a, err := adapter.NewAdapter1FromAdapterID(b.adapterID)
	if err != nil {
		return fmt.Errorf("adapter %s: %w", b.adapterID, err)
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("system bus: %w", err)
	}

	agent.NextAgentPath()
	ag := agent.NewSimpleAgent()
	if err := agent.ExposeAgent(conn, ag, agent.CapNoInputNoOutput, true); err != nil {
		return fmt.Errorf("expose agent: %w", err)
	}

	dev, err := b.findDevice(ctx, a)
	if err != nil {
		return err
	}

	props, err := dev.GetProperties()
	if err != nil {
		return fmt.Errorf("device properties: %w", err)
	}
	if !props.Connected {
		b.logger.Debug("connecting device")
		if err := dev.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}

	write, notify, err := b.resolveProfile(ctx, dev)
	if err != nil {
		_ = dev.Disconnect()
		return err
	}

	propsC, err := notify.WatchProperties()
	if err != nil {
		_ = dev.Disconnect()
		return fmt.Errorf("watch notify characteristic: %w", err)
	}

	frames := make(chan []byte, 16)
	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(frames)
		for {
			select {
			case <-watchCtx.Done():
				return
			case update, ok := <-propsC:
				if !ok {
					return
				}
				if update.Interface != "org.bluez.GattCharacteristic1" || update.Name != "Value" {
					continue
				}
				value, ok := update.Value.([]byte)
				if !ok {
					continue
				}
				// Block rather than drop when the consumer lags; frames
				// are small and infrequent, losing one loses telemetry.
				select {
				case frames <- value:
				case <-watchCtx.Done():
					return
				}
			}
		}
	}()

	if err := notify.StartNotify(); err != nil {
		cancel()
		_ = dev.Disconnect()
		return fmt.Errorf("start notify: %w", err)
	}

	b.mu.Lock()
	b.dev = dev
	b.write = write
	b.notify = notify
	b.frames = frames
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	b.logger.Info("heater link up")
	return nil
}

// findDevice checks the adapter's cached device list first and falls
// back to an LE discovery scan.
func (b *BLE) findDevice(ctx context.Context, a *adapter.Adapter1) (*device.Device1, error) {
	devices, err := a.GetDevices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for _, dev := range devices {
		props, err := dev.GetProperties()
		if err != nil {
			continue
		}
		if props.Address == b.address {
			b.logger.Debug("found cached device")
			return dev, nil
		}
	}

	b.logger.Info("scanning for device")
	filter := adapter.NewDiscoveryFilter()
	filter.Transport = "le"
	_ = a.SetDiscoveryFilter(filter.ToMap())

	discovery, cancelDiscovery, err := api.Discover(a, nil)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	defer cancelDiscovery()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-discovery:
			if !ok {
				return nil, fmt.Errorf("discovery ended without finding %s", b.address)
			}
			dev, err := device.NewDevice1(ev.Path)
			if err != nil || dev == nil || dev.Properties == nil {
				continue
			}
			if dev.Properties.Address == b.address {
				return dev, nil
			}
		}
	}
}

// resolveProfile probes the known GATT layouts until one yields both
// characteristics. Characteristic discovery can lag connection, so the
// probe retries for a few seconds.
func (b *BLE) resolveProfile(ctx context.Context, dev *device.Device1) (*gatt.GattCharacteristic1, *gatt.GattCharacteristic1, error) {
	deadline := time.Now().Add(10 * time.Second)
	for {
		for _, profile := range gattProfiles {
			write, err := dev.GetCharByUUID(profile.write)
			if err != nil {
				continue
			}
			notify, err := dev.GetCharByUUID(profile.notify)
			if err != nil {
				continue
			}
			// The fff0 layouts share UUIDs with the roles swapped, so
			// presence alone cannot pick between them.
			if !charWritable(write) || !charNotifies(notify) {
				continue
			}
			b.logger.WithField("service", profile.service).Debug("gatt profile resolved")
			return write, notify, nil
		}
		if time.Now().After(deadline) {
			return nil, nil, fmt.Errorf("no known gatt profile on %s", b.address)
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func charWritable(c *gatt.GattCharacteristic1) bool {
	return hasFlag(c, gatt.FlagCharacteristicWrite) ||
		hasFlag(c, gatt.FlagCharacteristicWriteWithoutResponse)
}

func charNotifies(c *gatt.GattCharacteristic1) bool {
	return hasFlag(c, gatt.FlagCharacteristicNotify)
}

func hasFlag(c *gatt.GattCharacteristic1, flag string) bool {
	if c.Properties == nil {
		return false
	}
	for _, f := range c.Properties.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

func (b *BLE) Send(ctx context.Context, data []byte) error {
	b.mu.Lock()
	write := b.write
	b.mu.Unlock()
	if write == nil {
		return fmt.Errorf("ble: not connected")
	}
	if err := write.WriteValue(data, nil); err != nil {
		return fmt.Errorf("ble write: %w", err)
	}
	return nil
}

func (b *BLE) teardown() {
	b.mu.Lock()
	dev := b.dev
	notify := b.notify
	cancels := b.cancels
	b.dev, b.write, b.notify, b.cancels = nil, nil, nil, nil
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if notify != nil {
		_ = notify.StopNotify()
	}
	if dev != nil {
		_ = dev.Disconnect()
	}
}

func (b *BLE) Close() error {
	b.teardown()
	api.Exit()
	return nil
}
