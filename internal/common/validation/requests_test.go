package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Compliance Request Tests
// ==========================

func TestValidateComplianceRequest(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		wantErr bool
	}{
		{
			name:    "valid query",
			payload: map[string]interface{}{"query": "What are the KYC requirements for US exchanges?"},
			wantErr: false,
		},
		{
			name:    "valid with jurisdiction",
			payload: map[string]interface{}{"query": "What are the KYC requirements?", "jurisdiction": "US"},
			wantErr: false,
		},
		{
			name:    "missing query",
			payload: map[string]interface{}{"jurisdiction": "US"},
			wantErr: true,
		},
		{
			name:    "query too short",
			payload: map[string]interface{}{"query": "short"},
			wantErr: true,
		},
		{
			name:    "query too long",
			payload: map[string]interface{}{"query": strings.Repeat("a", 5001)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComplianceRequest(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ==========================
// Content Request Tests
// ==========================

func TestValidateContentRequest(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		wantErr bool
	}{
		{
			name:    "valid topic",
			payload: map[string]interface{}{"topic": "Staking rewards and securities law"},
			wantErr: false,
		},
		{
			name:    "topic too short",
			payload: map[string]interface{}{"topic": "too short"},
			wantErr: true,
		},
		{
			name:    "topic at minimum length",
			payload: map[string]interface{}{"topic": "exactly 10"},
			wantErr: false,
		},
		{
			name:    "topic over maximum",
			payload: map[string]interface{}{"topic": strings.Repeat("x", 501)},
			wantErr: true,
		},
		{
			name:    "missing topic",
			payload: map[string]interface{}{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContentRequest(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ==========================
// Search Request Tests
// ==========================

func TestValidateSearchRequest(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		wantErr bool
	}{
		{
			name:    "valid query",
			payload: map[string]interface{}{"q": "KYC"},
			wantErr: false,
		},
		{
			name:    "valid with limit",
			payload: map[string]interface{}{"q": "KYC", "limit": 10},
			wantErr: false,
		},
		{
			name:    "empty query",
			payload: map[string]interface{}{"q": ""},
			wantErr: true,
		},
		{
			name:    "limit too high",
			payload: map[string]interface{}{"q": "KYC", "limit": 51},
			wantErr: true,
		},
		{
			name:    "limit zero",
			payload: map[string]interface{}{"q": "KYC", "limit": 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearchRequest(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
