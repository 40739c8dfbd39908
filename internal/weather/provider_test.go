package weather

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls  int
	report Report
}

func (p *countingProvider) Current(_ context.Context, _ string) (Report, error) {
	p.calls++
	return p.report, nil
}

func TestCachedProviderReusesWithinTTL(t *testing.T) {
	base := &countingProvider{report: Report{TemperatureC: 30, Humidity: 80, Description: "clear"}}
	cached := wrapWithCache(base, time.Minute)

	first, err := cached.Current(context.Background(), "Jakarta")
	require.NoError(t, err)
	// City keys are normalized, so spacing and case still hit the cache.
	second, err := cached.Current(context.Background(), "  jakarta ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, base.calls)
}

func TestCachedProviderDistinctCities(t *testing.T) {
	base := &countingProvider{}
	cached := wrapWithCache(base, time.Minute)

	_, err := cached.Current(context.Background(), "Jakarta")
	require.NoError(t, err)
	_, err = cached.Current(context.Background(), "Oslo")
	require.NoError(t, err)

	assert.Equal(t, 2, base.calls)
}

func TestZeroTTLDisablesCache(t *testing.T) {
	base := &countingProvider{}
	provider := wrapWithCache(base, 0)

	_, _ = provider.Current(context.Background(), "Jakarta")
	_, _ = provider.Current(context.Background(), "Jakarta")

	assert.Equal(t, 2, base.calls)
}

func TestStaticProviderAlwaysAnswers(t *testing.T) {
	report, err := staticProvider{}.Current(context.Background(), "anywhere")
	require.NoError(t, err)
	assert.NotEmpty(t, report.Description)
}
