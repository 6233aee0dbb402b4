// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetWSConnected(t *testing.T) {
	SetWSConnected(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(WSConnected))

	SetWSConnected(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(WSConnected))
}

func TestRecordEvent(t *testing.T) {
	before := testutil.ToFloat64(WSEventsReceived.WithLabelValues("playing"))
	RecordEvent("playing")
	RecordEvent("playing")
	after := testutil.ToFloat64(WSEventsReceived.WithLabelValues("playing"))
	assert.Equal(t, before+2, after)
}

func TestRecordDBQueryCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("record_history"))
	RecordDBQuery("record_history", 5*time.Millisecond, nil)
	RecordDBQuery("record_history", 5*time.Millisecond, errors.New("boom"))
	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("record_history"))
	assert.Equal(t, before+1, after)
}

func TestRecordSessionEnded(t *testing.T) {
	before := testutil.ToFloat64(SessionsEnded.WithLabelValues("poll_debounce"))
	RecordSessionEnded("poll_debounce")
	after := testutil.ToFloat64(SessionsEnded.WithLabelValues("poll_debounce"))
	assert.Equal(t, before+1, after)
}
