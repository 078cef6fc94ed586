package guardian

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sentra-safety/sentra-platform/internal/alert"
	"github.com/sentra-safety/sentra-platform/internal/sos"
)

// EscalationPolicy maps alert kinds to the emergency contacts that should be
// notified. Delivery itself happens downstream; the policy only decides who
// gets attached to a raised alert.
type EscalationPolicy struct {
	Contacts []PolicyContact `yaml:"contacts"`
}

// PolicyContact is one emergency contact with the alert kinds it covers.
// An empty alert_kinds list means the contact covers every kind.
type PolicyContact struct {
	Name       string   `yaml:"name"`
	Phone      string   `yaml:"phone,omitempty"`
	Email      string   `yaml:"email,omitempty"`
	Channels   []string `yaml:"channels"`
	AlertKinds []string `yaml:"alert_kinds,omitempty"`
}

// LoadPolicy loads an escalation policy from a YAML file
func LoadPolicy(path string) (*EscalationPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	return ParsePolicy(data)
}

// ParsePolicy loads an escalation policy from byte data (useful for testing)
func ParsePolicy(data []byte) (*EscalationPolicy, error) {
	var policy EscalationPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
	}

	if err := validatePolicy(&policy); err != nil {
		return nil, fmt.Errorf("policy validation failed: %w", err)
	}

	return &policy, nil
}

// validatePolicy checks that every contact is addressable and that the
// configured alert kinds are known
func validatePolicy(policy *EscalationPolicy) error {
	for i, contact := range policy.Contacts {
		if contact.Name == "" {
			return fmt.Errorf("contact %d has no name", i)
		}
		if len(contact.Channels) == 0 {
			return fmt.Errorf("contact %q has no channels", contact.Name)
		}
		if contact.Phone == "" && contact.Email == "" {
			return fmt.Errorf("contact %q has neither phone nor email", contact.Name)
		}
		for _, kindName := range contact.AlertKinds {
			if _, err := sos.ParseAlertKind(kindName); err != nil {
				return fmt.Errorf("contact %q: %w", contact.Name, err)
			}
		}
	}
	return nil
}

// ContactsFor returns the contacts covering the given alert kind.
// Implements alert.ContactResolver.
func (p *EscalationPolicy) ContactsFor(kind sos.AlertKind) []alert.Contact {
	var out []alert.Contact
	for _, contact := range p.Contacts {
		if !contact.covers(kind) {
			continue
		}
		out = append(out, alert.Contact{
			Name:     contact.Name,
			Phone:    contact.Phone,
			Email:    contact.Email,
			Channels: contact.Channels,
		})
	}
	return out
}

// covers reports whether the contact is configured for the given kind
func (c PolicyContact) covers(kind sos.AlertKind) bool {
	if len(c.AlertKinds) == 0 {
		return true
	}
	for _, name := range c.AlertKinds {
		if parsed, err := sos.ParseAlertKind(name); err == nil && parsed == kind {
			return true
		}
	}
	return false
}
