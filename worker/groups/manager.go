// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package groups implements the group service facade: it drives the
// group store, forwards requested operations to the device provider,
// re-posts completion events on the group event bus, and reacts to
// device disconnection according to the purge policy.
package groups

import (
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/pubsub/v2"
	"github.com/juju/worker/v4/catacomb"

	"github.com/juju/netcore/core/group"
)

var logger = loggo.GetLogger("netcore.worker.groups")

// EventsTopic is the hub topic on which the manager publishes
// group.Event values.
const EventsTopic = "group.lifecycle"

const defaultFallbackPollFrequency = 30 * time.Second

// Provider applies group operations on devices and polls group state
// for devices whose driver lacks push notifications.
type Provider interface {
	PerformGroupOperation(device group.DeviceID, operations []group.Operation)
	PollGroups(device group.DeviceID)
}

// DeviceService reports device availability.
type DeviceService interface {
	IsAvailable(device group.DeviceID) bool
	Devices() []group.DeviceID
}

// DeviceEvent is delivered on the device topic when availability
// changes.
type DeviceEvent struct {
	Device    group.DeviceID
	Available bool
}

// DeviceEventsTopic is the hub topic carrying DeviceEvent values.
const DeviceEventsTopic = "device.availability"

// ManagerConfig collects the dependencies and tunables of a group
// manager.
type ManagerConfig struct {
	Store    group.Store
	Provider Provider
	Devices  DeviceService
	Clock    clock.Clock

	// Hub carries group events out and device events in. When nil the
	// manager creates its own.
	Hub *pubsub.SimpleHub

	// FallbackPollFrequency is how often the fallback provider is
	// asked to poll group state.
	FallbackPollFrequency time.Duration

	// PurgeOnDisconnection drops a device's groups when it goes
	// offline.
	PurgeOnDisconnection bool
}

// Validate returns an error if the config cannot drive a manager.
func (config ManagerConfig) Validate() error {
	if config.Store == nil {
		return errors.NotValidf("nil Store")
	}
	if config.Provider == nil {
		return errors.NotValidf("nil Provider")
	}
	if config.Devices == nil {
		return errors.NotValidf("nil Devices")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.FallbackPollFrequency < 0 {
		return errors.NotValidf("negative FallbackPollFrequency")
	}
	return nil
}

// Manager is the group service facade. It implements worker.Worker.
type Manager struct {
	catacomb catacomb.Catacomb
	config   ManagerConfig
	hub      *pubsub.SimpleHub

	// deviceEvents serializes availability changes onto the manager
	// loop.
	deviceEvents chan DeviceEvent

	mu    sync.Mutex
	purge bool

	unsubscribe func()
}

// NewManager returns a started group manager.
func NewManager(config ManagerConfig) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.FallbackPollFrequency == 0 {
		config.FallbackPollFrequency = defaultFallbackPollFrequency
	}
	if config.Hub == nil {
		config.Hub = pubsub.NewSimpleHub(nil)
	}

	m := &Manager{
		config:       config,
		hub:          config.Hub,
		deviceEvents: make(chan DeviceEvent, 16),
		purge:        config.PurgeOnDisconnection,
	}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &m.catacomb,
		Work: m.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	config.Store.SetDelegate(&storeDelegate{manager: m})
	m.unsubscribe = m.hub.Subscribe(DeviceEventsTopic, func(_ string, data interface{}) {
		if event, ok := data.(DeviceEvent); ok {
			select {
			case m.deviceEvents <- event:
			case <-m.catacomb.Dying():
			}
		}
	})
	logger.Infof("group manager started, poll frequency %s", config.FallbackPollFrequency)
	return m, nil
}

// Kill is part of the worker.Worker interface.
func (m *Manager) Kill() {
	m.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (m *Manager) Wait() error {
	err := m.catacomb.Wait()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return err
}

// loop serializes device events and drives the fallback poll.
func (m *Manager) loop() error {
	timer := m.config.Clock.NewTimer(m.config.FallbackPollFrequency)
	defer timer.Stop()
	for {
		select {
		case <-m.catacomb.Dying():
			return m.catacomb.ErrDying()
		case event := <-m.deviceEvents:
			m.handleDeviceEvent(event)
		case <-timer.Chan():
			for _, device := range m.config.Devices.Devices() {
				m.config.Provider.PollGroups(device)
			}
			timer.Reset(m.config.FallbackPollFrequency)
		}
	}
}

func (m *Manager) handleDeviceEvent(event DeviceEvent) {
	if event.Available || m.config.Devices.IsAvailable(event.Device) {
		return
	}
	logger.Debugf("device %s became unavailable; clearing initial audit status", event.Device)
	m.config.Store.DeviceInitialAuditCompleted(event.Device, false)
	if m.purgeOnDisconnection() {
		logger.Infof("purge on disconnection requested for device %s, removing groups", event.Device)
		m.config.Store.PurgeGroupEntries(event.Device)
	}
}

// AddGroup records a group creation request.
func (m *Manager) AddGroup(desc group.Description) {
	m.config.Store.StoreGroupDescription(desc)
}

// GetGroup returns the group recorded for the cookie, or nil.
func (m *Manager) GetGroup(device group.DeviceID, key group.Key) *group.Group {
	return m.config.Store.GetGroup(device, key)
}

// GetGroups returns the device's recorded groups.
func (m *Manager) GetGroups(device group.DeviceID) []*group.Group {
	return m.config.Store.GetGroups(device)
}

// AddBucketsToGroup appends buckets to an existing group.
func (m *Manager) AddBucketsToGroup(device group.DeviceID, oldKey group.Key, buckets []group.Bucket, newKey group.Key) {
	m.config.Store.UpdateGroupDescription(device, oldKey, group.UpdateAdd, buckets, newKey)
}

// RemoveBucketsFromGroup removes buckets from an existing group.
func (m *Manager) RemoveBucketsFromGroup(device group.DeviceID, oldKey group.Key, buckets []group.Bucket, newKey group.Key) {
	m.config.Store.UpdateGroupDescription(device, oldKey, group.UpdateRemove, buckets, newKey)
}

// SetBucketsForGroup replaces an existing group's buckets entirely.
func (m *Manager) SetBucketsForGroup(device group.DeviceID, oldKey group.Key, buckets []group.Bucket, newKey group.Key) {
	m.config.Store.UpdateGroupDescription(device, oldKey, group.UpdateSet, buckets, newKey)
}

// RemoveGroup records a group removal request.
func (m *Manager) RemoveGroup(device group.DeviceID, key group.Key) {
	m.config.Store.DeleteGroupDescription(device, key)
}

// PurgeGroupEntries drops all recorded groups for the device.
func (m *Manager) PurgeGroupEntries(device group.DeviceID) {
	m.config.Store.PurgeGroupEntries(device)
}

// SetPurgeOnDisconnection reconfigures the disconnection policy.
func (m *Manager) SetPurgeOnDisconnection(purge bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.purge != purge {
		m.purge = purge
		logger.Infof("purge on disconnection is now %v", purge)
	}
}

func (m *Manager) purgeOnDisconnection() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purge
}

// SubscribeEvents registers a callback for group lifecycle events. The
// returned func unsubscribes.
func (m *Manager) SubscribeEvents(fn func(group.Event)) func() {
	return m.hub.Subscribe(EventsTopic, func(_ string, data interface{}) {
		if event, ok := data.(group.Event); ok {
			fn(event)
		}
	})
}

// storeDelegate reacts to store events: requested operations go to the
// provider, completions are re-posted on the event bus.
type storeDelegate struct {
	manager *Manager
}

// Notify is part of the group.Delegate interface.
func (d *storeDelegate) Notify(event group.Event) {
	m := d.manager
	g := event.Group
	switch event.Type {
	case group.AddRequested:
		logger.Debugf("%s for group %d on device %s", event.Type, g.ID, g.DeviceID)
		m.config.Provider.PerformGroupOperation(g.DeviceID, []group.Operation{{
			Type:    group.OperationAdd,
			GroupID: g.ID,
			Kind:    g.Type,
			Buckets: g.Buckets,
		}})
	case group.UpdateRequested:
		logger.Debugf("%s for group %d on device %s", event.Type, g.ID, g.DeviceID)
		m.config.Provider.PerformGroupOperation(g.DeviceID, []group.Operation{{
			Type:    group.OperationModify,
			GroupID: g.ID,
			Kind:    g.Type,
			Buckets: g.Buckets,
		}})
	case group.RemoveRequested:
		logger.Debugf("%s for group %d on device %s", event.Type, g.ID, g.DeviceID)
		m.config.Provider.PerformGroupOperation(g.DeviceID, []group.Operation{{
			Type:    group.OperationDelete,
			GroupID: g.ID,
			Kind:    g.Type,
		}})
	default:
		m.hub.Publish(EventsTopic, event)
	}
}
