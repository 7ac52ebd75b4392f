// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// netcored runs a single-node controller core: the intent lifecycle
// engine and the application store wired to node-local primitives.
// Clustered deployments embed the same packages against distributed
// implementations of the store, storage and cluster contracts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"

	"github.com/juju/netcore/core/application"
	"github.com/juju/netcore/core/cluster"
	"github.com/juju/netcore/core/storage"
	"github.com/juju/netcore/store/appstore"
	"github.com/juju/netcore/store/intentstore"
	"github.com/juju/netcore/worker/intents"
)

var logger = loggo.GetLogger("netcore.cmd.netcored")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "netcored: %v\n", err)
		os.Exit(1)
	}
}

// noopResources satisfies the resource service for a node with no
// resource backend configured.
type noopResources struct{}

func (noopResources) Release(consumer string) bool {
	logger.Debugf("releasing resources for %s", consumer)
	return true
}

func run(args []string) error {
	flags := gnuflag.NewFlagSet("netcored", gnuflag.ContinueOnError)
	dataDir := flags.String("data-dir", "/var/lib/netcore", "node data directory")
	numWorkers := flags.Int("intent-workers", 0, "intent worker pool size (0 = default)")
	logConfig := flags.String("log-config", "<root>=INFO", "loggo configuration")
	if err := flags.Parse(true, args); err != nil {
		return err
	}
	if err := loggo.ConfigureLoggers(*logConfig); err != nil {
		return err
	}

	manager, err := intents.NewManager(intents.ManagerConfig{
		Store:      intentstore.NewStore(clock.WallClock),
		Resources:  noopResources{},
		Clock:      clock.WallClock,
		NumWorkers: *numWorkers,
	})
	if err != nil {
		return err
	}
	defer func() {
		manager.Kill()
		_ = manager.Wait()
	}()

	apps := storage.NewLocalMap[application.ID, *application.Holder](
		storage.MapOptions[*application.Holder]{Name: appstore.AppsMapName})
	topic := storage.NewLocalTopic[*application.Application](
		storage.TopicOptions[*application.Application]{Name: appstore.ActivationTopicName})
	store, err := appstore.NewStore(appstore.Config{
		ArchiveDir:      filepath.Join(*dataDir, "apps"),
		Apps:            apps,
		ActivationTopic: topic,
		Cluster:         singleNode{},
		Communicator:    loopbackCommunicator{},
		IDStore:         appstore.NewLocalIDStore(),
		Clock:           clock.WallClock,
	})
	if err != nil {
		return err
	}
	defer func() {
		store.Kill()
		_ = store.Wait()
	}()

	logger.Infof("netcored started (data dir %s)", *dataDir)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Infof("netcored stopping")
	return nil
}

// singleNode is the one-member cluster.
type singleNode struct{}

func (singleNode) LocalNode() cluster.NodeID { return "localhost" }
func (singleNode) Nodes() []cluster.NodeID   { return []cluster.NodeID{"localhost"} }

// loopbackCommunicator drops unicast messaging: a single node has no
// peers to talk to.
type loopbackCommunicator struct{}

func (loopbackCommunicator) SendAndReceive(context.Context, cluster.Subject, []byte, cluster.NodeID) ([]byte, error) {
	return nil, errors.NotSupportedf("peer messaging on a single node")
}

func (loopbackCommunicator) Subscribe(cluster.Subject, cluster.Handler) error { return nil }
func (loopbackCommunicator) Unsubscribe(cluster.Subject)                      {}
