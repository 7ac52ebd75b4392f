// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intents

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/pubsub/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/juju/netcore/core/intent"
)

const (
	// defaultNumWorkers is the size of the phase worker pool.
	defaultNumWorkers = 12

	// defaultInstallTimeout bounds how long the coordinator waits for
	// an installer to report before failing the operation.
	defaultInstallTimeout = 30 * time.Second

	// defaultBatchWindow and defaultBatchLimit control accumulator
	// coalescing: a batch is emitted when the window elapses or the
	// limit is reached, whichever happens first.
	defaultBatchWindow = 50 * time.Millisecond
	defaultBatchLimit  = 500
)

// ResourceService releases resource reservations held on behalf of
// withdrawn intents.
type ResourceService interface {
	// Release frees everything reserved under the consumer tag,
	// reporting whether the release took effect.
	Release(consumer string) bool
}

// ObjectiveTracker observes every intent data write so the topology
// service can maintain its objective index. Optional.
type ObjectiveTracker interface {
	TrackIntent(*intent.Data)
}

// ManagerConfig collects the dependencies and tunables of an intent
// manager.
type ManagerConfig struct {
	// Store is the replicated intent map.
	Store intent.Store

	// Resources releases reservations on terminal withdrawal.
	Resources ResourceService

	// Tracker, when set, observes every data write.
	Tracker ObjectiveTracker

	// Clock drives the accumulator window and install timeout.
	Clock clock.Clock

	// Hub carries intent lifecycle events to local subscribers. When
	// nil the manager creates its own.
	Hub *pubsub.SimpleHub

	// NumWorkers is the phase worker pool size.
	NumWorkers int

	// InstallTimeout bounds installer completion.
	InstallTimeout time.Duration

	// BatchWindow and BatchLimit tune accumulator coalescing.
	BatchWindow time.Duration
	BatchLimit  int

	// SkipReleaseResourcesOnWithdrawal disables resource release on
	// withdrawal. Used for throughput benchmarking only.
	SkipReleaseResourcesOnWithdrawal bool

	// PrometheusRegisterer, when set, receives the manager's metrics
	// collector.
	PrometheusRegisterer prometheus.Registerer
}

// Validate returns an error if the config cannot drive a manager.
func (config ManagerConfig) Validate() error {
	if config.Store == nil {
		return errors.NotValidf("nil Store")
	}
	if config.Resources == nil {
		return errors.NotValidf("nil Resources")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.NumWorkers < 0 {
		return errors.NotValidf("negative NumWorkers")
	}
	if config.InstallTimeout < 0 {
		return errors.NotValidf("negative InstallTimeout")
	}
	if config.BatchWindow < 0 {
		return errors.NotValidf("negative BatchWindow")
	}
	if config.BatchLimit < 0 {
		return errors.NotValidf("negative BatchLimit")
	}
	return nil
}

func (config ManagerConfig) withDefaults() ManagerConfig {
	if config.NumWorkers == 0 {
		config.NumWorkers = defaultNumWorkers
	}
	if config.InstallTimeout == 0 {
		config.InstallTimeout = defaultInstallTimeout
	}
	if config.BatchWindow == 0 {
		config.BatchWindow = defaultBatchWindow
	}
	if config.BatchLimit == 0 {
		config.BatchLimit = defaultBatchLimit
	}
	if config.Hub == nil {
		config.Hub = pubsub.NewSimpleHub(nil)
	}
	return config
}
