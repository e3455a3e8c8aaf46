package config

import (
	"sync"
	"time"
)

// Settings holds the runtime-tunable options. Unlike Config, which is fixed
// after Load, each field here can be changed independently while the service
// runs and takes effect on the next read.
//
// The minimum profit threshold is held in percent units. The original UI
// accepted a fractional value in one path and compared it against a
// percent-scale result; converting once here keeps every comparison in the
// evaluator in a single unit.
type Settings struct {
	mu sync.RWMutex

	minProfitPercent float64
	maxGasPriceGwei  float64
	slippagePercent  float64
	pollInterval     time.Duration
	retention        time.Duration
}

// NewSettings seeds runtime settings from the loaded execution config.
func NewSettings(exec ExecutionConfig, pollInterval time.Duration) *Settings {
	return &Settings{
		minProfitPercent: exec.MinProfitPercent,
		maxGasPriceGwei:  exec.MaxGasPriceGwei,
		slippagePercent:  exec.SlippagePercent,
		pollInterval:     pollInterval,
		retention:        exec.Retention,
	}
}

func (s *Settings) MinProfitPercent() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minProfitPercent
}

func (s *Settings) SetMinProfitPercent(v float64) {
	s.mu.Lock()
	s.minProfitPercent = v
	s.mu.Unlock()
}

func (s *Settings) MaxGasPriceGwei() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxGasPriceGwei
}

func (s *Settings) SetMaxGasPriceGwei(v float64) {
	s.mu.Lock()
	s.maxGasPriceGwei = v
	s.mu.Unlock()
}

func (s *Settings) SlippagePercent() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slippagePercent
}

func (s *Settings) SetSlippagePercent(v float64) {
	s.mu.Lock()
	s.slippagePercent = v
	s.mu.Unlock()
}

func (s *Settings) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pollInterval
}

func (s *Settings) SetPollInterval(d time.Duration) {
	s.mu.Lock()
	s.pollInterval = d
	s.mu.Unlock()
}

func (s *Settings) Retention() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retention
}

func (s *Settings) SetRetention(d time.Duration) {
	s.mu.Lock()
	s.retention = d
	s.mu.Unlock()
}
