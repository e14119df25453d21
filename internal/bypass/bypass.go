package bypass

import (
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether a sender is handled without model calls.
// Rules are exact addresses ("notifications@github.com") or whole
// domains ("@mailer.example.com").
type Checker struct {
	addresses map[string]bool
	domains   map[string]bool
	logger    *zap.Logger
}

// NewChecker creates a new bypass checker
func NewChecker(rules []string, logger *zap.Logger) *Checker {
	c := &Checker{
		addresses: make(map[string]bool),
		domains:   make(map[string]bool),
		logger:    logger,
	}

	// Normalize rules (lowercase)
	for _, rule := range rules {
		rule = strings.ToLower(strings.TrimSpace(rule))
		if rule == "" {
			continue
		}
		if strings.HasPrefix(rule, "@") {
			c.domains[strings.TrimPrefix(rule, "@")] = true
		} else {
			c.addresses[rule] = true
		}
	}

	if (len(c.addresses) > 0 || len(c.domains) > 0) && logger != nil {
		logger.Info("Initialized bypass checker",
			zap.Int("addresses", len(c.addresses)),
			zap.Int("domains", len(c.domains)))
	}

	return c
}

// ShouldBypass checks if the sender address matches a bypass rule
func (c *Checker) ShouldBypass(address string) bool {
	if len(c.addresses) == 0 && len(c.domains) == 0 {
		return false
	}

	address = strings.ToLower(strings.TrimSpace(address))
	if c.addresses[address] {
		if c.logger != nil {
			c.logger.Debug("Sender address matches bypass rule", zap.String("address", address))
		}
		return true
	}

	// Extract domain from email address
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return false
	}
	if c.domains[parts[1]] {
		if c.logger != nil {
			c.logger.Debug("Sender domain matches bypass rule",
				zap.String("domain", parts[1]),
				zap.String("address", address))
		}
		return true
	}

	return false
}
