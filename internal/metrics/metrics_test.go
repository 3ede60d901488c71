package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAndCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SignupsTotal.WithLabelValues("EMAIL").Inc()
	m.SignupsTotal.WithLabelValues("EMAIL").Inc()
	m.LoginsTotal.WithLabelValues("GOOGLE").Inc()
	m.RefreshRotationsTotal.Inc()
	m.ProviderFailuresTotal.WithLabelValues("KAKAO").Inc()
	m.TempTokensTotal.WithLabelValues("email_verify").Inc()

	require.Equal(t, 2.0, testutil.ToFloat64(m.SignupsTotal.WithLabelValues("EMAIL")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues("GOOGLE")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RefreshRotationsTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ProviderFailuresTotal.WithLabelValues("KAKAO")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.TempTokensTotal.WithLabelValues("email_verify")))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)

	require.Panics(t, func() { New(reg) })
}
