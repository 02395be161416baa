// Package fake is a deterministic extraction provider for tests and local
// development. It never touches the network.
package fake

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"onboarding-backend/internal/doctypes"
	"onboarding-backend/internal/extraction"
)

// Provider answers from Responses when set, otherwise synthesizes plausible
// fields from the document bytes. File names containing "unreadable" are
// rejected and names containing "blurry" produce low confidence.
type Provider struct {
	mu        sync.Mutex
	calls     int
	Responses []Response
}

// Response is a scripted reply consumed in order.
type Response struct {
	Raw string
	Err error
}

// Name implements extraction.Provider.
func (p *Provider) Name() string { return "fake" }

// Calls reports how many times Extract ran.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Extract implements extraction.Provider.
func (p *Provider) Extract(ctx context.Context, in extraction.Input) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	idx := p.calls
	p.calls++
	scripted := len(p.Responses) > 0
	var resp Response
	if scripted {
		if idx >= len(p.Responses) {
			idx = len(p.Responses) - 1
		}
		resp = p.Responses[idx]
	}
	p.mu.Unlock()

	if scripted {
		if resp.Err != nil {
			return nil, resp.Err
		}
		return json.RawMessage(resp.Raw), nil
	}
	return synthesize(in)
}

func synthesize(in extraction.Input) (json.RawMessage, error) {
	name := strings.ToLower(in.FileName)
	if strings.Contains(name, "unreadable") {
		return json.Marshal(map[string]any{"fields": map[string]string{}, "rejected": true, "reason": "image too dark to read"})
	}

	sum := sha256.Sum256(in.Data)
	seed := binary.BigEndian.Uint64(sum[:8])
	fields := map[string]string{}
	for _, field := range in.DocumentType.Required() {
		fields[field] = sampleValue(field, seed)
	}
	if in.DocumentType == doctypes.Resume || in.DocumentType == doctypes.OfferLetter {
		fields[doctypes.FieldEmail] = "new.hire@example.com"
		fields[doctypes.FieldPhone] = fmt.Sprintf("+91 9%09d", seed%1_000_000_000)
	}

	confidence := 0.92
	issues := []string{}
	if strings.Contains(name, "blurry") {
		confidence = 0.35
		issues = append(issues, "blurry image")
	}
	return json.Marshal(map[string]any{"fields": fields, "confidence": confidence, "issues": issues})
}

func sampleValue(field string, seed uint64) string {
	switch field {
	case doctypes.FieldName:
		return "Asha Rao"
	case doctypes.FieldDOB:
		return "1994-03-17"
	case doctypes.FieldAadhaarNumber:
		return fmt.Sprintf("%04d %04d %04d", 2000+seed%8000, (seed/10_000)%10_000, (seed/100_000_000)%10_000)
	case doctypes.FieldPANNumber:
		return fmt.Sprintf("ABCDE%04dF", seed%10_000)
	default:
		return "sample"
	}
}

var _ extraction.Provider = (*Provider)(nil)
