// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package runlog_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/runlog"
)

func record(i int) connector.RunRecord {
	return connector.RunRecord{RunID: fmt.Sprintf("run-%d", i)}
}

func TestLogNewestFirst(t *testing.T) {
	t.Parallel()

	log := runlog.NewLogger(0)
	for i := 0; i < 3; i++ {
		log.Log(record(i))
	}

	records := log.List(0)
	require.Len(t, records, 3)
	assert.Equal(t, "run-2", records[0].RunID)
	assert.Equal(t, "run-0", records[2].RunID)
}

func TestLogEvictsOldest(t *testing.T) {
	t.Parallel()

	log := runlog.NewLogger(runlog.MinCapacity)
	for i := 0; i < runlog.MinCapacity+10; i++ {
		log.Log(record(i))
	}

	assert.Equal(t, runlog.MinCapacity, log.Len())
	records := log.List(0)
	assert.Equal(t, fmt.Sprintf("run-%d", runlog.MinCapacity+9), records[0].RunID)
	assert.Equal(t, "run-10", records[len(records)-1].RunID)
}

func TestCapacityFloors(t *testing.T) {
	t.Parallel()

	log := runlog.NewLogger(3)
	for i := 0; i < runlog.MinCapacity+5; i++ {
		log.Log(record(i))
	}
	assert.Equal(t, runlog.MinCapacity, log.Len())
}

func TestListLimits(t *testing.T) {
	t.Parallel()

	log := runlog.NewLogger(0)
	for i := 0; i < 5; i++ {
		log.Log(record(i))
	}

	assert.Len(t, log.List(2), 2)
	assert.Len(t, log.List(100), 5)
	assert.Len(t, log.List(-1), 5)
}

func TestClear(t *testing.T) {
	t.Parallel()

	log := runlog.NewLogger(0)
	log.Log(record(0))
	log.Clear()
	assert.Zero(t, log.Len())
	assert.Empty(t, log.List(0))
}
