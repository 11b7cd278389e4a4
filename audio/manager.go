package audio

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"murmur/log"
)

const (
	// cacheTTL is how long a full scan stays fresh.
	cacheTTL = 10 * time.Second
	// entryTTL is how long a single cache entry is trusted during resolve.
	entryTTL = 5 * time.Second
)

// reqTimeout bounds how long callers wait for the directory worker.
var reqTimeout = 5 * time.Second

type deviceEntry struct {
	dev       Device
	available bool
	checkedAt time.Time
}

type cmdOp int

const (
	opEnumerate cmdOp = iota
	opResolve
	opRefresh
)

type cmdResult struct {
	names []string
	dev   Device
	err   error
}

type command struct {
	op    cmdOp
	name  string
	reply chan cmdResult
}

// Manager is the device directory. All host device queries run on one
// worker goroutine that owns the cache; callers communicate through a
// command channel with a bounded wait.
//
// A Manager is constructed explicitly and shut down with Close; there is
// no ambient global instance.
type Manager struct {
	cmds      chan command
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager starts the directory worker on top of host. The manager
// takes ownership of host and closes it on Close.
func NewManager(host Host) *Manager {
	m := &Manager{
		cmds: make(chan command),
		done: make(chan struct{}),
	}
	w := &directory{host: host, cache: make(map[string]deviceEntry)}
	go w.run(m.cmds, m.done)
	return m
}

// Enumerate returns the sorted, deduplicated names of available capture
// devices, rescanning when the cache is stale.
func (m *Manager) Enumerate() ([]string, error) {
	res, err := m.call(command{op: opEnumerate})
	if err != nil {
		return nil, err
	}
	return res.names, res.err
}

// Resolve maps a device name to a usable device. The reserved name
// "default" (case-insensitive) always resolves to the host's default
// input device.
func (m *Manager) Resolve(name string) (Device, error) {
	res, err := m.call(command{op: opResolve, name: name})
	if err != nil {
		return Device{}, err
	}
	return res.dev, res.err
}

// Refresh forces a full cache rescan.
func (m *Manager) Refresh() error {
	_, err := m.call(command{op: opRefresh})
	return err
}

// Close stops the worker and releases the host.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *Manager) call(cmd command) (cmdResult, error) {
	cmd.reply = make(chan cmdResult, 1)
	timer := time.NewTimer(reqTimeout)
	defer timer.Stop()

	select {
	case m.cmds <- cmd:
	case <-m.done:
		return cmdResult{}, ErrClosed
	case <-timer.C:
		return cmdResult{}, fmt.Errorf("%w: worker busy", ErrTimeout)
	}

	select {
	case res := <-cmd.reply:
		return res, nil
	case <-m.done:
		return cmdResult{}, ErrClosed
	case <-timer.C:
		return cmdResult{}, fmt.Errorf("%w: no reply", ErrTimeout)
	}
}

// directory runs on the worker goroutine and is the sole owner of the
// host handle and the device cache.
type directory struct {
	host     Host
	cache    map[string]deviceEntry
	lastScan time.Time
}

func (d *directory) run(cmds <-chan command, done <-chan struct{}) {
	defer d.host.Close()
	for {
		select {
		case <-done:
			return
		case cmd := <-cmds:
			var res cmdResult
			switch cmd.op {
			case opEnumerate:
				res.names, res.err = d.enumerate()
			case opResolve:
				res.dev, res.err = d.resolve(cmd.name)
			case opRefresh:
				d.scan()
			}
			cmd.reply <- res
		}
	}
}

func (d *directory) enumerate() ([]string, error) {
	if d.lastScan.IsZero() || time.Since(d.lastScan) > cacheTTL {
		d.scan()
	}

	names := d.availableNames()
	if len(names) == 0 {
		// Devices can look transiently absent while the host
		// re-initializes; one extra scan before reporting empty.
		d.scan()
		names = d.availableNames()
	}
	return names, nil
}

func (d *directory) availableNames() []string {
	names := make([]string, 0, len(d.cache))
	for name, entry := range d.cache {
		if entry.available {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// scan refreshes the whole cache. A host enumeration failure keeps the
// prior entries and presumes them still valid rather than discarding them.
func (d *directory) scan() {
	started := time.Now()
	for name, entry := range d.cache {
		entry.available = false
		d.cache[name] = entry
	}

	devices, err := d.host.Devices()
	if err != nil {
		log.Errorf("enumerating capture devices: %v", err)
		for name, entry := range d.cache {
			entry.available = true
			d.cache[name] = entry
		}
		return
	}

	for _, dev := range devices {
		if dev.Name == "" {
			continue
		}
		_, probeErr := d.host.Probe(dev)
		d.cache[dev.Name] = deviceEntry{
			dev:       dev,
			available: probeErr == nil,
			checkedAt: time.Now(),
		}
	}
	d.lastScan = time.Now()
	log.DeviceScan(len(devices), float64(time.Since(started).Microseconds())/1000)
}

func (d *directory) resolve(name string) (Device, error) {
	if IsDefaultName(name) {
		dev, err := d.host.DefaultDevice()
		if err != nil {
			return Device{}, fmt.Errorf("resolving default device: %w", err)
		}
		return dev, nil
	}

	if entry, ok := d.cache[name]; ok {
		if !entry.available {
			return Device{}, fmt.Errorf("%w: %s", ErrDeviceUnavailable, name)
		}
		if time.Since(entry.checkedAt) > entryTTL {
			d.refreshOne(name)
		}
	} else {
		d.scan()
	}

	devices, err := d.host.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("enumerating devices: %w", err)
	}
	for _, dev := range devices {
		if dev.Name != name {
			continue
		}
		if _, probeErr := d.host.Probe(dev); probeErr != nil {
			return Device{}, fmt.Errorf("%w: %s exists but is not accessible", ErrDeviceUnavailable, name)
		}
		return dev, nil
	}
	return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
}

// refreshOne re-probes a single stale entry without paying for a full
// rescan.
func (d *directory) refreshOne(name string) {
	devices, err := d.host.Devices()
	if err == nil {
		for _, dev := range devices {
			if dev.Name != name {
				continue
			}
			_, probeErr := d.host.Probe(dev)
			d.cache[name] = deviceEntry{
				dev:       dev,
				available: probeErr == nil,
				checkedAt: time.Now(),
			}
			return
		}
	}

	if entry, ok := d.cache[name]; ok {
		entry.available = false
		entry.checkedAt = time.Now()
		d.cache[name] = entry
	}
}
