package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/arbor-ui/arbor/pkg/arbor"
)

// enable uses a private registry so tests never touch the process-wide
// default registerer.
func enable(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := Enable(WithRegistry(reg))
	if m == nil {
		t.Fatal("Enable returned nil")
	}
	return m, reg
}

func TestEnableIsSingleton(t *testing.T) {
	m1, _ := enable(t)
	m2 := Enable()
	if m1 != m2 {
		t.Error("Enable should return the same instance on repeat calls")
	}
}

func TestEnableHooksInstrumentation(t *testing.T) {
	m, _ := enable(t)

	if arbor.Instrument.LookupDone == nil || arbor.Instrument.ProviderUpdate == nil {
		t.Fatal("Enable should install the instrumentation callbacks")
	}

	before := testutil.ToFloat64(m.lookupsTotal.WithLabelValues("hit"))
	arbor.Instrument.LookupDone(true)
	arbor.Instrument.LookupDone(true)
	arbor.Instrument.LookupDone(false)
	if got := testutil.ToFloat64(m.lookupsTotal.WithLabelValues("hit")); got != before+2 {
		t.Errorf("hit lookups = %v, want %v", got, before+2)
	}

	beforeSkipped := testutil.ToFloat64(m.providerUpdates.WithLabelValues("skipped_equal"))
	arbor.Instrument.ProviderUpdate(false)
	if got := testutil.ToFloat64(m.providerUpdates.WithLabelValues("skipped_equal")); got != beforeSkipped+1 {
		t.Errorf("skipped updates = %v, want %v", got, beforeSkipped+1)
	}
}

func TestLookupCountsFromCore(t *testing.T) {
	m, _ := enable(t)

	c := arbor.NewContext[string]()
	p := c.NewProvider("x")

	parent := arbor.NewScope(nil)
	child := arbor.NewScope(parent)
	defer parent.Dispose()
	node := p.Wrap()
	arbor.WithScope(parent, func() { node.Comp.Render() })

	hitBefore := testutil.ToFloat64(m.lookupsTotal.WithLabelValues("hit"))
	missBefore := testutil.ToFloat64(m.lookupsTotal.WithLabelValues("miss"))

	if _, err := c.Lookup(child); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	other := arbor.NewContext[string]()
	if _, err := other.Lookup(child); err == nil {
		t.Fatal("expected miss for unprovided context")
	}

	if got := testutil.ToFloat64(m.lookupsTotal.WithLabelValues("hit")); got != hitBefore+1 {
		t.Errorf("hit count = %v, want %v", got, hitBefore+1)
	}
	if got := testutil.ToFloat64(m.lookupsTotal.WithLabelValues("miss")); got != missBefore+1 {
		t.Errorf("miss count = %v, want %v", got, missBefore+1)
	}
}

func TestProviderUpdateCountsFromCore(t *testing.T) {
	m, _ := enable(t)

	c := arbor.NewContext[int]()
	p := c.NewProvider(1)

	appliedBefore := testutil.ToFloat64(m.providerUpdates.WithLabelValues("applied"))
	skippedBefore := testutil.ToFloat64(m.providerUpdates.WithLabelValues("skipped_equal"))

	p.Set(2)
	p.Set(2)

	if got := testutil.ToFloat64(m.providerUpdates.WithLabelValues("applied")); got != appliedBefore+1 {
		t.Errorf("applied count = %v, want %v", got, appliedBefore+1)
	}
	if got := testutil.ToFloat64(m.providerUpdates.WithLabelValues("skipped_equal")); got != skippedBefore+1 {
		t.Errorf("skipped count = %v, want %v", got, skippedBefore+1)
	}
}

func TestObserveFlush(t *testing.T) {
	m, _ := enable(t)

	flushesBefore := testutil.ToFloat64(m.flushesTotal)
	rerendersBefore := testutil.ToFloat64(m.rerendersTotal)

	m.ObserveFlush(3)
	m.ObserveFlush(0)

	if got := testutil.ToFloat64(m.flushesTotal); got != flushesBefore+2 {
		t.Errorf("flushes = %v, want %v", got, flushesBefore+2)
	}
	if got := testutil.ToFloat64(m.rerendersTotal); got != rerendersBefore+3 {
		t.Errorf("rerenders = %v, want %v", got, rerendersBefore+3)
	}
}

func TestSessionGauge(t *testing.T) {
	m, _ := enable(t)

	before := testutil.ToFloat64(m.activeSessions)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	if got := testutil.ToFloat64(m.activeSessions); got != before+1 {
		t.Errorf("active sessions = %v, want %v", got, before+1)
	}
}

func TestObserveFrame(t *testing.T) {
	m, _ := enable(t)

	before := testutil.ToFloat64(m.framesSent)
	m.ObserveFrame()
	if got := testutil.ToFloat64(m.framesSent); got != before+1 {
		t.Errorf("frames = %v, want %v", got, before+1)
	}
}
