package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func synthInputs() map[StageID]GenerationResult {
	return map[StageID]GenerationResult{
		"marketSize": {
			Success:    true,
			Confidence: 85,
			Payload:    Payload{"tam": "$100B", "trends": []string{"AI", "Mobile"}},
			Sources:    []Source{{Name: "Statista", Type: "Market Research"}, {Name: "IBISWorld", Type: "Industry Report"}},
		},
		"pricing": {
			Success:    true,
			Confidence: 60,
			Payload:    Payload{"strategy": Payload{"model": "Freemium"}},
			Sources:    []Source{{Name: "Statista", Type: "Market Research"}, {Name: "ProfitWell", Type: "Benchmark"}},
		},
	}
}

func TestSynthesizer_MapsFieldsAndAverages(t *testing.T) {
	syn := NewSynthesizer(SynthesisPlan{
		Fields: []FieldMapping{
			{Field: "marketSize", Stage: "marketSize", Path: "tam"},
			{Field: "revenueModel", Stage: "pricing", Path: "strategy.model"},
			{Field: "channels", Stage: "gtmInsights", Path: "channels"},
		},
		Contributors:    []StageID{"marketSize", "competitors", "pricing", "gtmInsights"},
		MinContributors: 2,
	})

	res, err := syn.Generate(context.Background(), GenerationRequest{Inputs: synthInputs()})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "$100B", res.Payload["marketSize"])
	assert.Equal(t, "Freemium", res.Payload["revenueModel"])
	assert.NotContains(t, res.Payload, "channels")
	// (85 + 60) / 2 = 72.5 -> 73
	assert.Equal(t, 73, res.Confidence)
	assert.Equal(t, []Source{
		{Name: "Statista", Type: "Market Research"},
		{Name: "IBISWorld", Type: "Industry Report"},
		{Name: "ProfitWell", Type: "Benchmark"},
	}, res.Sources)
}

func TestSynthesizer_TooFewContributors(t *testing.T) {
	syn := NewSynthesizer(SynthesisPlan{
		Contributors:    []StageID{"marketSize", "pricing", "gtmInsights"},
		MinContributors: 3,
	})

	res, err := syn.Generate(context.Background(), GenerationRequest{Inputs: synthInputs()})

	assert.False(t, res.Success)
	var aggErr *AggregationError
	require.True(t, errors.As(err, &aggErr))
	assert.Equal(t, 2, aggErr.Contributors)
	assert.Equal(t, 3, aggErr.Required)
}

func TestSynthesizer_OrderFromMappings(t *testing.T) {
	syn := NewSynthesizer(SynthesisPlan{
		Fields: []FieldMapping{
			{Field: "revenueModel", Stage: "pricing", Path: "strategy.model"},
			{Field: "marketSize", Stage: "marketSize", Path: "tam"},
		},
	})

	res, err := syn.Generate(context.Background(), GenerationRequest{Inputs: synthInputs()})
	require.NoError(t, err)
	require.NotEmpty(t, res.Sources)
	assert.Equal(t, "Statista", res.Sources[0].Name)
	assert.Equal(t, "ProfitWell", res.Sources[1].Name)
}

func TestSynthesizer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSynthesizer(SynthesisPlan{}).Generate(ctx, GenerationRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynthesisPlan_Validate(t *testing.T) {
	deps := []StageID{"a", "b"}
	tests := []struct {
		name    string
		plan    SynthesisPlan
		wantErr string
	}{
		{"valid", SynthesisPlan{Fields: []FieldMapping{{Field: "x", Stage: "a", Path: "x"}}, Contributors: deps, MinContributors: 2}, ""},
		{"duplicate field", SynthesisPlan{Fields: []FieldMapping{{Field: "x", Stage: "a", Path: "x"}, {Field: "x", Stage: "b", Path: "y"}}}, "mapped twice"},
		{"foreign stage", SynthesisPlan{Fields: []FieldMapping{{Field: "x", Stage: "c", Path: "x"}}}, "not a dependency"},
		{"foreign contributor", SynthesisPlan{Contributors: []StageID{"z"}}, "not a dependency"},
		{"incomplete mapping", SynthesisPlan{Fields: []FieldMapping{{Field: "x", Stage: "a"}}}, "incomplete"},
		{"minimum too high", SynthesisPlan{MinContributors: 3}, "min contributors"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate(deps)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
