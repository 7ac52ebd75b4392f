// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package intents implements the intent lifecycle engine: a manager
// accepting declarative intents, compiling them through registered
// compilers, coordinating installation through registered installers,
// and recompiling on topology change. Processing is batched with
// at-most-one batch in flight, per-key ordered by request version.
package intents

import (
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/pubsub/v2"
	"github.com/juju/worker/v4/catacomb"
	"github.com/kr/pretty"

	"github.com/juju/netcore/core/application"
	"github.com/juju/netcore/core/intent"
)

var logger = loggo.GetLogger("netcore.worker.intents")

// EventsTopic is the hub topic on which the manager publishes
// intent.Event values.
const EventsTopic = "intent.lifecycle"

func errNotTerminal(current *intent.Data) error {
	return errors.Errorf("cannot purge %s in non-terminal state %s", current.Key(), current.State())
}

func errUnknownRequest(pending *intent.Data) error {
	return errors.Errorf("unknown request %d for %s", pending.Request(), pending.Key())
}

// Manager is the public facade of the intent subsystem. It implements
// worker.Worker; the caller is responsible for killing it and handling
// its error.
type Manager struct {
	catacomb catacomb.Catacomb
	config   ManagerConfig

	compilers   *compilerRegistry
	installers  *installerRegistry
	coordinator *Coordinator
	accumulator *accumulator
	hub         *pubsub.SimpleHub
	metrics     *managerMetrics

	// batches carries emitted batches to the single-threaded batch
	// loop. The accumulator holds further batches until Ready, so a
	// one-slot buffer never blocks the emitting goroutine.
	batches chan []*intent.Data

	mu          sync.Mutex
	skipRelease bool
}

// NewManager returns a started intent manager.
func NewManager(config ManagerConfig) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	config = config.withDefaults()

	m := &Manager{
		config:      config,
		compilers:   newCompilerRegistry(),
		installers:  newInstallerRegistry(),
		hub:         config.Hub,
		batches:     make(chan []*intent.Data, 1),
		metrics:     newManagerMetrics(config.Store),
		skipRelease: config.SkipReleaseResourcesOnWithdrawal,
	}
	m.coordinator = NewCoordinator(m.installers, config.Clock, config.InstallTimeout)
	m.accumulator = newAccumulator(config.Clock, config.BatchWindow, config.BatchLimit, m.enqueueBatch)

	if err := catacomb.Invoke(catacomb.Plan{
		Site: &m.catacomb,
		Work: m.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	config.Store.SetDelegate(&storeDelegate{manager: m})
	logger.Infof("intent manager started with %d workers", config.NumWorkers)
	return m, nil
}

// Kill is part of the worker.Worker interface.
func (m *Manager) Kill() {
	m.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (m *Manager) Wait() error {
	return m.catacomb.Wait()
}

// loop is the batch executor: single-threaded, FIFO over batches, at
// most one batch in flight.
func (m *Manager) loop() error {
	if m.config.PrometheusRegisterer != nil {
		_ = m.config.PrometheusRegisterer.Register(m.metrics)
		defer m.config.PrometheusRegisterer.Unregister(m.metrics)
	}
	for {
		select {
		case <-m.catacomb.Dying():
			return m.catacomb.ErrDying()
		case batch := <-m.batches:
			m.processBatch(batch)
		}
	}
}

func (m *Manager) enqueueBatch(batch []*intent.Data) {
	select {
	case m.batches <- batch:
	case <-m.catacomb.Dying():
	}
}

// processBatch walks every intent of the batch through its phases on
// the worker pool, then persists the results in batch order.
func (m *Manager) processBatch(batch []*intent.Data) {
	logger.Debugf("executing batch of %d operation(s)", len(batch))
	if logger.IsTraceEnabled() {
		logger.Tracef("batch contents: %# v", pretty.Formatter(batch))
	}

	results := make([]*intent.Data, len(batch))
	sem := make(chan struct{}, m.config.NumWorkers)
	var wg sync.WaitGroup
	for i, data := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, data *intent.Data) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = m.processOne(data)
		}(i, data)
	}
	wg.Wait()

	writes := make([]*intent.Data, 0, len(results))
	for _, r := range results {
		if r != nil {
			writes = append(writes, r)
		}
	}
	if err := m.config.Store.BatchWrite(writes); err != nil {
		// The whole batch failed to persist; a background reconciler
		// retries from store state, so just keep the pipeline moving.
		logger.Errorf("batch write of %d result(s) failed: %v", len(writes), err)
	}
	m.metrics.batchDone(len(batch), len(writes))
	m.accumulator.Ready()
}

// processOne drives one intent through the phase pipeline and returns
// its next durable data, or nil for no write.
func (m *Manager) processOne(data *intent.Data) (result *intent.Data) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warningf("phase pipeline panic for %s: %v", data.Key(), r)
			result = m.failedFallback(data)
		}
	}()

	logger.Debugf("start processing of %s", data)
	key := data.Key()
	pending := m.config.Store.GetPendingData(key)
	if pending == nil || pending.Version().NewerThan(data.Version()) {
		// Either a previous batch already consumed this request, or a
		// newer request exists and will be picked up on the next tick.
		return nil
	}
	current := m.config.Store.GetIntentData(key)
	return runPhases(newInitialPhase(m, data, current))
}

// failedFallback produces the terminal data for a pipeline that died
// unexpectedly: unchanged installables, state FAILED, so that a
// reconciliation sweep can retry the intent.
func (m *Manager) failedFallback(data *intent.Data) *intent.Data {
	base := m.config.Store.GetIntentData(data.Key())
	if base == nil {
		base = data
	}
	switch data.State() {
	case intent.InstallReq, intent.Compiling, intent.Installing,
		intent.WithdrawReq, intent.Withdrawing:
		return intent.NextState(base, intent.Failed)
	}
	return nil
}

// compile is part of the processor interface.
func (m *Manager) compile(i intent.Intent, previous []intent.Intent) ([]intent.Intent, error) {
	return m.compilers.compile(i, previous)
}

// apply is part of the processor interface. It suspends the calling
// phase until the coordinator reports the operation's outcome.
func (m *Manager) apply(toUninstall, toInstall *intent.Data) operationOutcome {
	return <-m.coordinator.Install(toUninstall, toInstall)
}

// transition is part of the processor interface: it reports a
// transient state the pipeline passes through.
func (m *Manager) transition(state intent.State, i intent.Intent) {
	if event, ok := intent.NewEvent(state, i); ok {
		m.post(event)
	}
}

func (m *Manager) post(event intent.Event) {
	m.hub.Publish(EventsTopic, event)
}

// SubscribeEvents registers a callback for intent lifecycle events.
// The returned func unsubscribes.
func (m *Manager) SubscribeEvents(fn func(intent.Event)) func() {
	return m.hub.Subscribe(EventsTopic, func(_ string, data interface{}) {
		if event, ok := data.(intent.Event); ok {
			fn(event)
		}
	})
}

// Submit asks the manager to install the intent.
func (m *Manager) Submit(i intent.Intent) error {
	return m.addPending(intent.Submit(i))
}

// Withdraw asks the manager to remove the intent from the network.
func (m *Manager) Withdraw(i intent.Intent) error {
	return m.addPending(intent.Withdraw(i))
}

// Purge removes a terminal intent from the store entirely.
func (m *Manager) Purge(i intent.Intent) error {
	return m.addPending(intent.Purge(i))
}

func (m *Manager) addPending(data *intent.Data) error {
	err := m.config.Store.AddPending(data)
	if errors.Is(err, intent.ErrNotMaster) {
		// Not ours to process; the master node will pick it up.
		logger.Tracef("ignoring %s: %v", data.Key(), err)
		return nil
	}
	return errors.Trace(err)
}

// GetIntent returns the intent recorded under the key, or nil.
func (m *Manager) GetIntent(key intent.Key) intent.Intent {
	return m.config.Store.GetIntent(key)
}

// GetIntents returns all intents with current data.
func (m *Manager) GetIntents() []intent.Intent {
	return m.config.Store.GetIntents()
}

// GetIntentsByAppID returns the intents submitted by the application.
func (m *Manager) GetIntentsByAppID(id application.ID) []intent.Intent {
	var out []intent.Intent
	for _, i := range m.config.Store.GetIntents() {
		if i.AppID() == id {
			out = append(out, i)
		}
	}
	return out
}

// GetIntentState returns the lifecycle state for the key: that of its
// pending request when one exists, otherwise that of its current data.
func (m *Manager) GetIntentState(key intent.Key) intent.State {
	return m.config.Store.GetIntentState(key)
}

// GetInstallableIntents returns the compiled installables for the key.
func (m *Manager) GetInstallableIntents(key intent.Key) []intent.Intent {
	return m.config.Store.GetInstallableIntents(key)
}

// GetIntentCount returns the number of intents with current data.
func (m *Manager) GetIntentCount() int {
	return m.config.Store.GetIntentCount()
}

// IsLocal reports whether this node masters the key.
func (m *Manager) IsLocal(key intent.Key) bool {
	return m.config.Store.IsMaster(key)
}

// RegisterCompiler installs a compiler for the intent type.
func (m *Manager) RegisterCompiler(t *intent.Type, c Compiler) {
	m.compilers.register(t, c)
}

// UnregisterCompiler removes the compiler for the intent type.
func (m *Manager) UnregisterCompiler(t *intent.Type) {
	m.compilers.unregister(t)
}

// RegisterInstaller installs an installer for the installable type.
func (m *Manager) RegisterInstaller(t *intent.Type, i Installer) {
	m.installers.register(t, i)
}

// UnregisterInstaller removes the installer for the installable type.
func (m *Manager) UnregisterInstaller(t *intent.Type) {
	m.installers.unregister(t)
}

// InstallSuccess is the coordinator feedback endpoint installers call
// on successful application of an operation context.
func (m *Manager) InstallSuccess(ctx *OperationContext) {
	m.coordinator.Success(ctx)
}

// InstallFailed is the coordinator feedback endpoint installers call
// when an operation context cannot be applied.
func (m *Manager) InstallFailed(ctx *OperationContext) {
	m.coordinator.Failed(ctx)
}

// SetSkipReleaseResourcesOnWithdrawal toggles the benchmarking mode in
// which withdrawn intents keep their resource reservations.
func (m *Manager) SetSkipReleaseResourcesOnWithdrawal(skip bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipRelease != skip {
		m.skipRelease = skip
		logger.Infof("reconfigured skipReleaseResourcesOnWithdrawal = %v", skip)
	}
}

func (m *Manager) skipReleaseResources() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skipRelease
}

// recompileStates are the states a compileAllFailed sweep resubmits.
var recompileStates = map[intent.State]bool{
	intent.InstallReq:  true,
	intent.Failed:      true,
	intent.WithdrawReq: true,
}

// withdrawStates are the states a sweep re-withdraws instead of
// resubmitting.
var withdrawStates = map[intent.State]bool{
	intent.WithdrawReq: true,
	intent.Withdrawing: true,
	intent.Withdrawn:   true,
}

// TriggerCompile is the topology-change hook: the affected intents are
// recompiled, and with compileAllFailed every recompilable intent is
// re-driven according to its state.
func (m *Manager) TriggerCompile(keys []intent.Key, compileAllFailed bool) {
	logger.Tracef("submitting %d key(s) + all?:%v for compilation", len(keys), compileAllFailed)
	store := m.config.Store
	for _, key := range keys {
		if !store.IsMaster(key) {
			continue
		}
		i := store.GetIntent(key)
		if i == nil {
			continue
		}
		if store.GetPendingData(key) != nil {
			continue
		}
		if err := m.Submit(i); err != nil {
			logger.Warningf("resubmitting %s: %v", key, err)
		}
	}

	if !compileAllFailed {
		return
	}
	for _, i := range store.GetIntents() {
		key := i.Key()
		if !store.IsMaster(key) {
			continue
		}
		if store.GetPendingData(key) != nil {
			continue
		}
		state := store.GetIntentState(key)
		if !recompileStates[state] && !intent.AllowsPartialFailure(i) {
			continue
		}
		var err error
		if withdrawStates[state] {
			err = m.Withdraw(i)
		} else {
			err = m.Submit(i)
		}
		if err != nil {
			logger.Warningf("re-driving %s in %s: %v", key, state, err)
		}
	}
}

// storeDelegate connects the store's callbacks to the manager.
type storeDelegate struct {
	manager *Manager
}

// Process is part of the intent.Delegate interface.
func (d *storeDelegate) Process(data *intent.Data) {
	d.manager.accumulator.Add(data)
}

// Notify is part of the intent.Delegate interface.
func (d *storeDelegate) Notify(event intent.Event) {
	m := d.manager
	m.post(event)
	if event.Type == intent.EventWithdrawn && !m.skipReleaseResources() {
		m.releaseResources(event.Intent)
	}
}

// OnUpdate is part of the intent.Delegate interface.
func (d *storeDelegate) OnUpdate(data *intent.Data) {
	if tracker := d.manager.config.Tracker; tracker != nil {
		tracker.TrackIntent(data)
	}
}

// releaseResources frees the reservations of a withdrawn intent. An
// intent without a resource group reserved under its own key; grouped
// intents share a reservation that is released only once the last
// member of the group is withdrawn.
func (m *Manager) releaseResources(i intent.Intent) {
	group := i.ResourceGroup()
	consumer := string(group)
	if group == "" {
		consumer = i.Key().String()
	} else {
		remaining := 0
		for _, other := range m.config.Store.GetIntents() {
			if other.ResourceGroup() != group {
				continue
			}
			if m.config.Store.GetIntentState(other.Key()) != intent.Withdrawn {
				remaining++
			}
		}
		if remaining > 0 {
			return
		}
	}
	if !m.config.Resources.Release(consumer) {
		logger.Errorf("failed to release resources allocated to %s", consumer)
	}
}
