package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNew_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err)
}

func TestBlockMinted(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.BlockMinted(1, 0)
	m.BlockMinted(2, 3)

	require.InDelta(t, 2, testutil.ToFloat64(m.height), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.blocksMinted), 0)
	require.InDelta(t, 3, testutil.ToFloat64(m.txsMinted), 0)
}

func TestPendingChanged(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.PendingChanged(7)
	require.InDelta(t, 7, testutil.ToFloat64(m.pending), 0)
	m.PendingChanged(0)
	require.InDelta(t, 0, testutil.ToFloat64(m.pending), 0)
}

func TestRecordSearch(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordSearch(OutcomeFound, 0.2)
	m.RecordSearch(OutcomeFound, 0.1)
	m.RecordSearch(OutcomeCanceled, 0.05)

	require.InDelta(t, 2, testutil.ToFloat64(m.searches.WithLabelValues(OutcomeFound)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.searches.WithLabelValues(OutcomeCanceled)), 0)
	require.Equal(t, 1, testutil.CollectAndCount(m.searchDuration))
}

func TestRecordRPCCall(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordRPCCall("chain_getInfo", nil, 0.01)
	m.RecordRPCCall("tx_submit", errors.New("boom"), 0.01)

	require.InDelta(t, 1, testutil.ToFloat64(m.rpcCalls.WithLabelValues("chain_getInfo", StatusSuccess)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.rpcCalls.WithLabelValues("tx_submit", StatusError)), 0)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.BlockMinted(1, 1)
		m.PendingChanged(1)
		m.RecordSearch(OutcomeFound, 1)
		m.RecordRPCCall("x", nil, 1)
	})
}

func TestNewWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewWithLabels(reg, Labels{NodeID: "abc"})
	require.NoError(t, err)
	m.BlockMinted(1, 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() != "ledger_chain_height" {
			continue
		}
		found = true
		lbls := f.GetMetric()[0].GetLabel()
		require.Len(t, lbls, 1)
		require.Equal(t, "node_id", lbls[0].GetName())
		require.Equal(t, "abc", lbls[0].GetValue())
	}
	require.True(t, found)
}

func TestServer_Endpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.BlockMinted(4, 1)

	ts := httptest.NewServer(NewServer(":0", reg).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.True(t, strings.Contains(string(body), "ledger_chain_height 4"), string(body))
}
