// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package appstore manages the cluster-wide inventory of installable
// applications: a replicated map of activation state, a replicated
// activation topic, peer-to-peer archive transfer, and dependency-
// driven activation with reference counting.
package appstore

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/retry"
	"gopkg.in/tomb.v2"

	"github.com/juju/netcore/core/application"
	"github.com/juju/netcore/core/cluster"
	"github.com/juju/netcore/core/storage"
)

var logger = loggo.GetLogger("netcore.store.appstore")

// BitsRequestSubject is the cluster channel on which nodes request
// application archives from their peers. The request payload is the
// UTF-8 application name; the response is the raw archive bytes, or
// empty when the peer lacks them.
const BitsRequestSubject cluster.Subject = "app-bits-request"

// ErrMissingDependencies is returned by Create when a required app is
// not installed.
const ErrMissingDependencies = errors.ConstError("missing required applications")

const (
	// AppsMapName and ActivationTopicName name the replicated
	// primitives backing the store.
	AppsMapName         = "netcore-apps"
	ActivationTopicName = "netcore-apps-activation-topic"

	defaultFetchTimeout = 10 * time.Second

	maxLoadRetries = 5
	loadRetryDelay = 2 * time.Second
)

// IDStore assigns and resolves cluster-wide application ids.
type IDStore interface {
	// RegisterApplication returns the id for the name, minting one on
	// first use.
	RegisterApplication(name string) (application.ID, error)

	// GetAppID resolves an already registered name.
	GetAppID(name string) (application.ID, bool)
}

// Config collects the dependencies and tunables of an application
// store.
type Config struct {
	// ArchiveDir is the node-local application archive directory.
	ArchiveDir string

	// Apps is the replicated application map.
	Apps storage.Map[application.ID, *application.Holder]

	// ActivationTopic is the replicated activation topic.
	ActivationTopic storage.Topic[*application.Application]

	// Cluster exposes the peer set; Communicator carries bits
	// requests.
	Cluster      cluster.Service
	Communicator cluster.Communicator

	// IDStore assigns application ids.
	IDStore IDStore

	// Clock drives fetch timeouts and load retries.
	Clock clock.Clock

	// FetchTimeout bounds peer archive fetches.
	FetchTimeout time.Duration
}

// Validate returns an error if the config cannot drive a store.
func (config Config) Validate() error {
	if config.ArchiveDir == "" {
		return errors.NotValidf("empty ArchiveDir")
	}
	if config.Apps == nil {
		return errors.NotValidf("nil Apps")
	}
	if config.ActivationTopic == nil {
		return errors.NotValidf("nil ActivationTopic")
	}
	if config.Cluster == nil {
		return errors.NotValidf("nil Cluster")
	}
	if config.Communicator == nil {
		return errors.NotValidf("nil Communicator")
	}
	if config.IDStore == nil {
		return errors.NotValidf("nil IDStore")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	return nil
}

// Store is the distributed application store. It implements
// worker.Worker; activation side effects are serialized on its event
// goroutine.
type Store struct {
	tomb    tomb.Tomb
	config  Config
	archive *Archive
	coreID  application.ID

	// work is the single-threaded event executor: map events, topic
	// deliveries and bootstrap all run here in order.
	workMu    sync.Mutex
	workQueue []func()
	workReady chan struct{}

	// requiredBy tracks, per application name, the names of the apps
	// that requested its activation. An app stays activated while its
	// set is non-empty. Explicit activations record the core app.
	reqMu      sync.Mutex
	requiredBy map[string]set.Strings

	// localStartedApps records the apps whose activation events have
	// been delivered on this node, gating dependent activations.
	startedMu        sync.Mutex
	localStartedApps set.Strings

	// pendingApps guards disk bootstrap against dependency cycles.
	pendingApps set.Strings

	delegateMu sync.Mutex
	delegate   application.StoreDelegate

	unsubscribeTopic func()
}

// NewStore returns a started application store.
func NewStore(config Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = defaultFetchTimeout
	}
	archive, err := NewArchive(config.ArchiveDir)
	if err != nil {
		return nil, errors.Trace(err)
	}
	coreID, err := config.IDStore.RegisterApplication(application.CoreName)
	if err != nil {
		return nil, errors.Annotate(err, "registering core application")
	}

	s := &Store{
		config:           config,
		archive:          archive,
		coreID:           coreID,
		workReady:        make(chan struct{}, 1),
		requiredBy:       make(map[string]set.Strings),
		localStartedApps: set.NewStrings(),
		pendingApps:      set.NewStrings(),
	}

	if err := config.Communicator.Subscribe(BitsRequestSubject, s.serveBits); err != nil {
		return nil, errors.Annotate(err, "subscribing to bits requests")
	}
	s.unsubscribeTopic = config.ActivationTopic.Subscribe(func(app *application.Application) {
		s.enqueue(func() { s.handleActivation(app) })
	})
	config.Apps.Listen(func(event storage.MapEvent[application.ID, *application.Holder]) {
		s.enqueue(func() { s.handleMapEvent(event) })
	})
	config.Apps.ListenStatus(func(status storage.Status) {
		if status == storage.StatusActive {
			s.enqueue(s.bootstrapExistingApplications)
		}
	})

	s.reconcileVersions()
	s.tomb.Go(s.loop)
	logger.Infof("application store started")
	return s, nil
}

// Kill is part of the worker.Worker interface.
func (s *Store) Kill() {
	s.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (s *Store) Wait() error {
	err := s.tomb.Wait()
	s.config.Communicator.Unsubscribe(BitsRequestSubject)
	if s.unsubscribeTopic != nil {
		s.unsubscribeTopic()
	}
	return err
}

// SetDelegate wires the delegate receiving application events, then
// replays the replicated state and the local disk inventory so a
// late-started node catches up.
func (s *Store) SetDelegate(delegate application.StoreDelegate) {
	s.delegateMu.Lock()
	s.delegate = delegate
	s.delegateMu.Unlock()

	s.enqueue(s.bootstrapExistingApplications)
	s.enqueue(s.downloadMissingApplications)
	s.enqueue(s.loadFromDisk)
}

// CoreID returns the id the core registered under.
func (s *Store) CoreID() application.ID {
	return s.coreID
}

// loop drains the event executor.
func (s *Store) loop() error {
	for {
		select {
		case <-s.tomb.Dying():
			return tomb.ErrDying
		case <-s.workReady:
			for {
				s.workMu.Lock()
				if len(s.workQueue) == 0 {
					s.workMu.Unlock()
					break
				}
				fn := s.workQueue[0]
				s.workQueue = s.workQueue[1:]
				s.workMu.Unlock()
				fn()
			}
		}
	}
}

// enqueue schedules work on the event executor without ever blocking
// the caller.
func (s *Store) enqueue(fn func()) {
	s.workMu.Lock()
	s.workQueue = append(s.workQueue, fn)
	s.workMu.Unlock()
	select {
	case s.workReady <- struct{}{}:
	default:
	}
}

// serveBits answers a peer's archive request with the local bits, or
// an empty payload when this node lacks them.
func (s *Store) serveBits(payload []byte) ([]byte, error) {
	name := string(payload)
	data, err := s.archive.Bytes(name)
	if errors.Is(err, errors.NotFound) {
		logger.Warningf("bits for application %q are not available on this node yet", name)
		return nil, nil
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	logger.Infof("sending bits for application %q", name)
	return data, nil
}

// Create installs an application from an archive stream: the bits are
// saved locally, prerequisites verified, and the app registered in the
// replicated map in the INSTALLED state.
func (s *Store) Create(r io.Reader) (*application.Application, error) {
	desc, err := s.archive.Save(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if missing := s.missingPrerequisites(desc); len(missing) > 0 {
		// Purge the bits so the app can be reinstalled once its
		// prerequisites arrive.
		s.archive.Purge(desc.Name)
		return nil, errors.Annotatef(ErrMissingDependencies, "app %q requires %v", desc.Name, missing)
	}
	return s.create(desc)
}

func (s *Store) missingPrerequisites(desc *application.Description) []string {
	var missing []string
	for _, required := range desc.RequiredApps {
		id, ok := s.config.IDStore.GetAppID(required)
		if !ok || s.GetApplication(id) == nil {
			logger.Errorf("%q required for %q not available", required, desc.Name)
			missing = append(missing, required)
		}
	}
	return missing
}

func (s *Store) create(desc *application.Description) (*application.Application, error) {
	id, err := s.config.IDStore.RegisterApplication(desc.Name)
	if err != nil {
		return nil, errors.Annotatef(err, "registering %q", desc.Name)
	}
	app := application.New(id, *desc)
	if existing := s.config.Apps.PutIfAbsent(id, application.NewHolder(app, application.Installed, nil)); existing != nil {
		return existing.Value.App, nil
	}
	return app, nil
}

// GetApplications returns all applications in the replicated map.
func (s *Store) GetApplications() []*application.Application {
	var out []*application.Application
	for _, v := range s.config.Apps.Values() {
		out = append(out, v.Value.App)
	}
	return out
}

// GetApplication returns the application for the id, or nil.
func (s *Store) GetApplication(id application.ID) *application.Application {
	holder := storage.ValueOrNil(s.config.Apps.Get(id))
	if holder == nil {
		return nil
	}
	return holder.App
}

// GetID resolves an application name.
func (s *Store) GetID(name string) (application.ID, bool) {
	return s.config.IDStore.GetAppID(name)
}

// GetState returns the application's replicated activation state.
func (s *Store) GetState(id application.ID) (application.State, bool) {
	holder := storage.ValueOrNil(s.config.Apps.Get(id))
	if holder == nil {
		return 0, false
	}
	return holder.State, true
}

// GetPermissions returns the application's granted permissions.
func (s *Store) GetPermissions(id application.ID) []string {
	holder := storage.ValueOrNil(s.config.Apps.Get(id))
	if holder == nil {
		return nil
	}
	return holder.Permissions
}

// SetPermissions replaces the application's granted permissions.
func (s *Store) SetPermissions(id application.ID, permissions []string) {
	updated, changed := s.config.Apps.ComputeIf(id,
		func(holder *application.Holder, exists bool) bool {
			return exists && !equalStringSets(holder.Permissions, permissions)
		},
		func(_ application.ID, holder *application.Holder) *application.Holder {
			return holder.WithPermissions(permissions)
		},
	)
	if changed {
		logger.Tracef("permissions changed for %s", id)
		s.notifyDelegate(application.Event{
			Type: application.AppPermissionsChanged,
			App:  updated.Value.App,
		})
	}
}

// GetApplicationArchive returns the local archive bits for the id.
func (s *Store) GetApplicationArchive(id application.ID) (io.Reader, error) {
	data, err := s.archive.Bytes(id.Name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return bytes.NewReader(data), nil
}

// Activate marks the application for activation on every node, on
// behalf of the user (recorded against the core app).
func (s *Store) Activate(id application.ID) {
	s.activateFor(id, s.coreID, true)
}

func (s *Store) activateFor(id, forID application.ID, updateActive bool) {
	s.addRequiredBy(id.Name, forID.Name)

	holder := storage.ValueOrNil(s.config.Apps.Get(id))
	if holder == nil {
		return
	}
	logger.Tracef("activating %s", id)
	if updateActive {
		s.archive.SetActive(id.Name)
	}

	// Required apps activate first, each recording this app as its
	// requester.
	for _, required := range holder.App.RequiredApps() {
		reqID, ok := s.config.IDStore.GetAppID(required)
		if !ok {
			logger.Warningf("required app %q for %s not registered", required, id)
			continue
		}
		s.activateFor(reqID, id, updateActive)
	}

	s.config.Apps.ComputeIf(id,
		func(holder *application.Holder, exists bool) bool {
			return exists && holder.State != application.Activated
		},
		func(_ application.ID, holder *application.Holder) *application.Holder {
			return holder.WithState(application.Activated)
		},
	)
	s.config.ActivationTopic.Publish(holder.App)
}

// Deactivate stops the application cluster-wide: dependents first,
// then this app's own user activation is withdrawn, and required apps
// follow once unreferenced.
func (s *Store) Deactivate(id application.ID) {
	s.deactivateDependents(id)
	s.deactivateFor(id, s.coreID)
}

func (s *Store) deactivateFor(id, forID application.ID) {
	if !s.removeRequiredBy(id.Name, forID.Name) {
		return
	}
	changed := false
	s.config.Apps.ComputeIf(id,
		func(holder *application.Holder, exists bool) bool {
			return exists && holder.State != application.Deactivated
		},
		func(_ application.ID, holder *application.Holder) *application.Holder {
			changed = true
			return holder.WithState(application.Deactivated)
		},
	)
	if changed {
		s.deactivateRequired(id)
	}
}

// deactivateDependents deactivates every activated app that requires
// this one.
func (s *Store) deactivateDependents(id application.ID) {
	for _, v := range s.config.Apps.Values() {
		holder := v.Value
		if holder.State != application.Activated {
			continue
		}
		if holder.App.Requires(id.Name) {
			s.Deactivate(holder.App.ID())
		}
	}
}

// deactivateRequired withdraws this app's interest in the apps it
// required.
func (s *Store) deactivateRequired(id application.ID) {
	app := s.GetApplication(id)
	if app == nil {
		return
	}
	for _, required := range app.RequiredApps() {
		reqID, ok := s.config.IDStore.GetAppID(required)
		if !ok {
			continue
		}
		holder := storage.ValueOrNil(s.config.Apps.Get(reqID))
		if holder != nil && holder.State == application.Activated {
			s.deactivateFor(reqID, id)
		}
	}
}

// Remove uninstalls the application cluster-wide, dependents first.
// The map listener purges the local archive and emits the uninstall
// event on every node.
func (s *Store) Remove(id application.ID) {
	s.removeDependents(id)
	s.config.Apps.Remove(id)
}

func (s *Store) removeDependents(id application.ID) {
	for _, v := range s.config.Apps.Values() {
		if v.Value.App.Requires(id.Name) {
			s.Remove(v.Value.App.ID())
		}
	}
}

// addRequiredBy records forName's interest in name.
func (s *Store) addRequiredBy(name, forName string) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	members, ok := s.requiredBy[name]
	if !ok {
		members = set.NewStrings()
		s.requiredBy[name] = members
	}
	members.Add(forName)
}

// removeRequiredBy withdraws forName's interest in name, reporting
// whether the app is now unreferenced.
func (s *Store) removeRequiredBy(name, forName string) bool {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	members, ok := s.requiredBy[name]
	if !ok {
		return true
	}
	members.Remove(forName)
	if members.IsEmpty() {
		delete(s.requiredBy, name)
		return true
	}
	return false
}

// RequiredBy returns the names of the apps currently holding the named
// app active.
func (s *Store) RequiredBy(name string) []string {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	if members, ok := s.requiredBy[name]; ok {
		return members.SortedValues()
	}
	return nil
}

// handleActivation runs on the event executor for every value
// published on the activation topic: fetch bits if this node lacks
// them, mark the app active on disk, and deliver the activation event
// once all required apps have started locally.
func (s *Store) handleActivation(app *application.Application) {
	if app == nil {
		return
	}
	logger.Tracef("received an activation for %s", app.ID())
	name := app.ID().Name
	if !s.bitsAvailable(app) {
		s.fetchBits(app, true)
	}
	s.archive.SetActive(name)

	ready := s.allStarted(app.RequiredApps())
	delegate := s.currentDelegate()
	switch {
	case ready && delegate != nil:
		s.notifyDelegate(application.Event{Type: application.AppActivated, App: app})
		s.markStarted(name)
	case delegate == nil:
		logger.Warningf("postponing app activation %s: no delegate yet", app.ID())
	default:
		logger.Warningf("postponing app activation %s: required apps not ready", app.ID())
	}
}

// handleMapEvent runs on the event executor for every replicated map
// mutation.
func (s *Store) handleMapEvent(event storage.MapEvent[application.ID, *application.Holder]) {
	newHolder := versionedHolder(event.NewValue)
	oldHolder := versionedHolder(event.OldValue)

	switch event.Type {
	case storage.MapInsert, storage.MapUpdate:
		if event.Type == storage.MapUpdate &&
			(newHolder == nil || oldHolder == nil || newHolder.State == oldHolder.State) {
			logger.Tracef("ignoring no-op update for %s", event.Key)
			return
		}
		if newHolder != nil {
			s.setupApplicationAndNotify(event.Key, newHolder.App, newHolder.State)
		}
	case storage.MapRemove:
		if oldHolder == nil {
			return
		}
		logger.Tracef("%s has been uninstalled", event.Key)
		s.notifyDelegate(application.Event{Type: application.AppUninstalled, App: oldHolder.App})
		s.archive.Purge(event.Key.Name)
		s.unmarkStarted(event.Key.Name)
	}
}

// setupApplicationAndNotify applies a replicated INSTALLED or
// DEACTIVATED state locally. ACTIVATED is handled by the activation
// topic.
func (s *Store) setupApplicationAndNotify(id application.ID, app *application.Application, state application.State) {
	switch state {
	case application.Installed:
		if !s.bitsAvailable(app) {
			s.fetchBits(app, false)
		}
		logger.Tracef("%s has been installed", id)
		s.notifyDelegate(application.Event{Type: application.AppInstalled, App: app})
	case application.Deactivated:
		logger.Tracef("%s has been deactivated", id)
		s.archive.ClearActive(id.Name)
		s.notifyDelegate(application.Event{Type: application.AppDeactivated, App: app})
		s.unmarkStarted(id.Name)
	}
}

// bitsAvailable reports whether the local archive holds the app's
// declared version.
func (s *Store) bitsAvailable(app *application.Application) bool {
	desc, err := s.archive.Description(app.ID().Name)
	if err != nil {
		return false
	}
	return desc.BinaryVersion() == app.Version()
}

// fetchBits asks the cluster peers for the app's archive, first
// non-empty response within the fetch timeout wins. Responses arriving
// after the winner (or the timeout) are ignored.
func (s *Store) fetchBits(app *application.Application, delegateInstallation bool) {
	name := app.ID().Name
	local := s.config.Cluster.LocalNode()
	logger.Infof("downloading bits for application %q version %s", name, app.Version())

	won := make(chan []byte, 1)
	for _, node := range s.config.Cluster.Nodes() {
		if node == local {
			continue
		}
		go func(node cluster.NodeID) {
			ctx, cancel := context.WithTimeout(context.Background(), s.config.FetchTimeout)
			defer cancel()
			bits, err := s.config.Communicator.SendAndReceive(ctx, BitsRequestSubject, []byte(name), node)
			if err != nil {
				logger.Warningf("unable to fetch bits for application %q from node %s: %v", name, node, err)
				return
			}
			if len(bits) == 0 {
				return
			}
			select {
			case won <- bits:
			default:
				// Another peer answered first; this response is
				// dropped.
			}
		}(node)
	}

	select {
	case bits := <-won:
		if _, err := s.archive.SaveBytes(bits); err != nil {
			logger.Errorf("saving fetched bits for application %q: %v", name, err)
			return
		}
		logger.Infof("downloaded bits for application %q", name)
		if delegateInstallation {
			logger.Tracef("delegate installation for %q", name)
			s.notifyDelegate(application.Event{Type: application.AppInstalled, App: app})
		}
	case <-s.config.Clock.After(s.config.FetchTimeout):
		logger.Warningf("unable to fetch bits for application %q", name)
	case <-s.tomb.Dying():
	}
}

// bootstrapExistingApplications replays the replicated map so a node
// that missed events during a staggered start converges.
func (s *Store) bootstrapExistingApplications() {
	for _, v := range s.config.Apps.Values() {
		holder := v.Value
		s.setupApplicationAndNotify(holder.App.ID(), holder.App, holder.State)
	}
}

// downloadMissingApplications fetches bits for installed apps this
// node lacks.
func (s *Store) downloadMissingApplications() {
	logger.Infof("going to download missing applications")
	for _, v := range s.config.Apps.Values() {
		if app := v.Value.App; !s.bitsAvailable(app) {
			s.fetchBits(app, false)
		}
	}
}

// loadFromDisk walks the local archive inventory and re-activates apps
// marked active, resolving declared dependencies depth-first.
func (s *Store) loadFromDisk() {
	logger.Infof("loading application inventory from disk")
	for _, name := range s.archive.Names() {
		app := s.loadAppFromDisk(name)
		if app != nil && s.archive.IsActive(name) {
			// Disk-loaded apps count as explicitly activated: they
			// stay up until the user deactivates them.
			s.addRequiredBy(name, application.CoreName)
			s.activateFor(app.ID(), s.coreID, false)
		}
	}
}

const (
	errCircularDependency = errors.ConstError("circular app dependency")
	errDependencyLoad     = errors.ConstError("unable to load required applications")
)

func (s *Store) loadAppFromDisk(name string) *application.Application {
	s.pendingApps.Add(name)
	defer s.pendingApps.Remove(name)

	var app *application.Application
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			loaded, err := s.tryLoad(name)
			if err != nil {
				return err
			}
			app = loaded
			return nil
		},
		IsFatalError: func(err error) bool {
			return errors.Is(err, errCircularDependency) || errors.Is(err, errDependencyLoad)
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Warningf("unable to load application %q from disk (attempt %d): %v", name, attempt, err)
		},
		Attempts: maxLoadRetries,
		Delay:    loadRetryDelay,
		Clock:    s.config.Clock,
	})
	if err != nil {
		if !errors.Is(err, errCircularDependency) {
			logger.Errorf("unable to load application %q", name)
		}
		return nil
	}
	return app
}

func (s *Store) tryLoad(name string) (*application.Application, error) {
	if id, ok := s.config.IDStore.GetAppID(name); ok {
		if app := s.GetApplication(id); app != nil {
			return app, nil
		}
	}
	desc, err := s.archive.Description(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for _, required := range desc.RequiredApps {
		if s.pendingApps.Contains(required) {
			logger.Errorf("Circular app dependency detected: %v -> %s", s.pendingApps.SortedValues(), required)
			return nil, errors.Annotatef(errCircularDependency, "%s -> %s", name, required)
		}
	}
	for _, required := range desc.RequiredApps {
		if s.loadAppFromDisk(required) == nil {
			return nil, errors.Annotatef(errDependencyLoad, "for %q", name)
		}
	}
	return s.create(desc)
}

// reconcileVersions rewrites stored holders whose version differs from
// the local disk inventory, supporting rolling upgrades.
func (s *Store) reconcileVersions() {
	for _, id := range s.config.Apps.Keys() {
		holder := storage.ValueOrNil(s.config.Apps.Get(id))
		if holder == nil {
			continue
		}
		desc, err := s.archive.Description(id.Name)
		if err != nil {
			// Bits not local yet; another node will serve them.
			logger.Warningf("application %q not found on disk", id.Name)
			continue
		}
		if desc.BinaryVersion() == holder.App.Version() {
			continue
		}
		logger.Infof("updating stored version of %q to %s", id.Name, desc.Version)
		rebuilt := application.New(holder.App.ID(), *desc)
		s.config.Apps.Put(id, application.NewHolder(rebuilt, holder.State, holder.Permissions))
	}
}

func (s *Store) allStarted(names []string) bool {
	s.startedMu.Lock()
	defer s.startedMu.Unlock()
	for _, name := range names {
		if !s.localStartedApps.Contains(name) {
			return false
		}
	}
	return true
}

func (s *Store) markStarted(name string) {
	s.startedMu.Lock()
	defer s.startedMu.Unlock()
	s.localStartedApps.Add(name)
}

func (s *Store) unmarkStarted(name string) {
	s.startedMu.Lock()
	defer s.startedMu.Unlock()
	s.localStartedApps.Remove(name)
}

func (s *Store) currentDelegate() application.StoreDelegate {
	s.delegateMu.Lock()
	defer s.delegateMu.Unlock()
	return s.delegate
}

func (s *Store) notifyDelegate(event application.Event) {
	if delegate := s.currentDelegate(); delegate != nil {
		delegate.Notify(event)
	}
}

func versionedHolder(v *storage.Versioned[*application.Holder]) *application.Holder {
	if v == nil {
		return nil
	}
	return v.Value
}

func equalStringSets(a, b []string) bool {
	return set.NewStrings(a...).Difference(set.NewStrings(b...)).IsEmpty() &&
		set.NewStrings(b...).Difference(set.NewStrings(a...)).IsEmpty()
}
