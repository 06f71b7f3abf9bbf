package chargeconfig_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shipgrid/backend-import/internal/chargeconfig"
	"github.com/shipgrid/backend-import/internal/pricing"
)

type scriptedSource struct {
	calls    atomic.Int32
	failFrom int32
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Load(context.Context) (*pricing.ChargeTable, error) {
	n := s.calls.Add(1)
	if s.failFrom > 0 && n >= s.failFrom {
		return nil, errors.New("boom")
	}
	label := "Ontario"
	if n > 1 {
		label = "Quebec"
	}
	return pricing.DecodeChargeTable(strings.NewReader(`{"` + label + `": [{"label": "Fee", "value": 100}]}`))
}

func TestReloaderLoadOnce(t *testing.T) {
	holder := pricing.NewTableHolder(nil)
	r := &chargeconfig.Reloader{Source: &scriptedSource{}, Holder: holder, Logger: zerolog.Nop()}
	require.NoError(t, r.LoadOnce(context.Background()))
	require.Equal(t, []string{"Ontario"}, holder.Load().Labels())
}

func TestReloaderRunSwapsTable(t *testing.T) {
	holder := pricing.NewTableHolder(nil)
	src := &scriptedSource{}
	r := &chargeconfig.Reloader{Source: src, Holder: holder, Interval: 5 * time.Millisecond, Logger: zerolog.Nop()}
	require.NoError(t, r.LoadOnce(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		return holder.Load().Labels()[0] == "Quebec"
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestReloaderKeepsTableOnFailure(t *testing.T) {
	holder := pricing.NewTableHolder(nil)
	src := &scriptedSource{failFrom: 2}
	r := &chargeconfig.Reloader{Source: src, Holder: holder, Interval: 5 * time.Millisecond, Logger: zerolog.Nop()}
	require.NoError(t, r.LoadOnce(context.Background()))
	first := holder.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)
	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.Same(t, first, holder.Load())
}
