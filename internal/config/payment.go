package config

import "time"

// PaymentConfig tunes the simulated payment processor.
type PaymentConfig struct {
	Delay       time.Duration
	FailureRate float64
}

func LoadPaymentConfig() PaymentConfig {
	rate := envFloat("PAYMENT_FAILURE_RATE", 0.1)
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return PaymentConfig{
		Delay:       envDur("PAYMENT_DELAY", time.Second),
		FailureRate: rate,
	}
}
