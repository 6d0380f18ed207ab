package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestCountersCarryServiceLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWith(reg, Config{ServiceName: "cobranca", Environment: "test"})

	m.IncIssued("created")
	m.IncIssued("created")
	m.IncIssued("skipped")
	m.IncCollision()

	issued := gatherFamily(t, reg, "cobranca_boletos_issued_total")
	require.NotNil(t, issued)
	require.Len(t, issued.GetMetric(), 2)
	for _, metric := range issued.GetMetric() {
		labels := map[string]string{}
		for _, pair := range metric.GetLabel() {
			labels[pair.GetName()] = pair.GetValue()
		}
		require.Equal(t, "cobranca", labels["service"])
		require.Equal(t, "test", labels["env"])
		switch labels["outcome"] {
		case "created":
			require.Equal(t, float64(2), metric.GetCounter().GetValue())
		case "skipped":
			require.Equal(t, float64(1), metric.GetCounter().GetValue())
		default:
			t.Fatalf("unexpected outcome label %q", labels["outcome"])
		}
	}

	collisions := gatherFamily(t, reg, "cobranca_external_id_collisions_total")
	require.NotNil(t, collisions)
	require.Equal(t, float64(1), collisions.GetMetric()[0].GetCounter().GetValue())
}

func TestJobDurationObserved(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWith(reg, Config{ServiceName: "cobranca", Environment: "test"})

	m.ObserveJobDuration("issue_due", 250*time.Millisecond)
	m.ObserveJobDuration("issue_due", 750*time.Millisecond)

	mf := gatherFamily(t, reg, "cobranca_sweep_job_duration_seconds")
	require.NotNil(t, mf)
	hist := mf.GetMetric()[0].GetHistogram()
	require.Equal(t, uint64(2), hist.GetSampleCount())
	require.InDelta(t, 1.0, hist.GetSampleSum(), 1e-9)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncIssued("created")
	m.IncIssuanceError("rejected")
	m.IncCollision()
	m.IncReconciled()
	m.IncJobRun("issue_due")
	m.IncJobError("issue_due", "timeout")
	m.ObserveJobDuration("issue_due", time.Second)
}
