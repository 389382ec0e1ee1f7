package backtest

import (
	"errors"
	"testing"

	"github.com/newthinker/stockanalyzer/internal/core"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"zero reserve allowed", func(p *Params) { p.CashReserve = d("0") }, false},
		{"reserve of one", func(p *Params) { p.CashReserve = d("1") }, true},
		{"negative reserve", func(p *Params) { p.CashReserve = d("-0.1") }, true},
		{"full position size", func(p *Params) { p.PositionSize = d("1") }, false},
		{"zero position size", func(p *Params) { p.PositionSize = d("0") }, true},
		{"oversized position", func(p *Params) { p.PositionSize = d("1.5") }, true},
		{"zero stop loss", func(p *Params) { p.StopLoss = d("0") }, true},
		{"stop loss of one", func(p *Params) { p.StopLoss = d("1") }, true},
		{"zero take profit", func(p *Params) { p.TakeProfit = d("0") }, true},
		{"negative threshold allowed", func(p *Params) { p.PredictionThreshold = d("-0.01") }, false},
		{"zero capital", func(p *Params) { p.InitialCapital = d("0") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidInput) {
					t.Errorf("Validate() = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSeries(t *testing.T) {
	if err := ValidateSeries(series([2]string{"1", "1"})); err != nil {
		t.Errorf("single observation should be valid: %v", err)
	}
	if err := ValidateSeries(nil); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("empty series: got %v", err)
	}

	neg := series([2]string{"10", "1"}, [2]string{"-1", "1"})
	if err := ValidateSeries(neg); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("negative close: got %v", err)
	}
}
