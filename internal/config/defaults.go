package config

import (
	"net/http"
	"strings"
	"time"
)

// Defaults used when neither the config file nor a flag sets a value.
const (
	DefaultName     = "Microservices mixed load"
	DefaultBaseURL  = "http://localhost:8080"
	DefaultDuration = 60 * time.Second
	DefaultWorkers  = 50
	DefaultMinDelay = 100 * time.Millisecond
	DefaultMaxDelay = 500 * time.Millisecond
	DefaultTimeout  = 30 * time.Second
)

// DefaultScenarios returns the stock request mix against the users,
// products and orders services.
func DefaultScenarios() []ScenarioConfig {
	return []ScenarioConfig{
		{
			Name:   "user",
			Weight: 0.3,
			Method: http.MethodPost,
			Path:   "/api/users",
			Body: `{"name": "User {{randomInt 1 10000}}", ` +
				`"email": "user{{randomInt 1 10000}}@example.com", ` +
				`"phoneNumber": "+9055512{{randomInt 10000 99999}}"}`,
		},
		{
			Name:   "product",
			Weight: 0.3,
			Method: http.MethodPost,
			Path:   "/api/products",
			Body: `{"name": "Product {{randomInt 1 10000}}", ` +
				`"description": "Load test product", ` +
				`"price": {{randomFloat 100 50000 2}}, ` +
				`"stockQuantity": {{randomInt 10 1000}}, ` +
				`"category": "{{randomChoice "Electronics" "Clothing" "Books" "Food"}}"}`,
		},
		{
			Name:   "order",
			Weight: 0.2,
			Method: http.MethodPost,
			Path:   "/api/orders",
			Body: `{"userId": {{randomInt 1 100}}, "items": [` +
				`{"productId": {{randomInt 1 100}}, "quantity": {{randomInt 1 5}}}, ` +
				`{"productId": {{randomInt 1 100}}, "quantity": {{randomInt 1 3}}}]}`,
		},
		{
			Name:   "user-read",
			Weight: 0.1,
			Method: http.MethodGet,
			Path:   "/api/users",
		},
		{
			Name:   "product-read",
			Weight: 0.1,
			Method: http.MethodGet,
			Path:   "/api/products",
		},
	}
}

// DefaultConfig returns a complete configuration with the stock mix.
func DefaultConfig() *TestConfig {
	c := &TestConfig{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every unset field.
func (c *TestConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.Duration == 0 {
		c.Duration = Duration(DefaultDuration)
	}
	if c.Workers == nil {
		workers := DefaultWorkers
		c.Workers = &workers
	}
	if c.Pacing == nil {
		c.Pacing = &PacingConfig{
			Min: Duration(DefaultMinDelay),
			Max: Duration(DefaultMaxDelay),
		}
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if len(c.Scenarios) == 0 {
		c.Scenarios = DefaultScenarios()
	}

	for i := range c.Scenarios {
		sc := &c.Scenarios[i]
		sc.Method = strings.ToUpper(sc.Method)
		if sc.Method == "" {
			if sc.Body != "" {
				sc.Method = http.MethodPost
			} else {
				sc.Method = http.MethodGet
			}
		}
	}
}

// WorkerCount returns the configured worker count, or the default when unset.
func (c *TestConfig) WorkerCount() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}
