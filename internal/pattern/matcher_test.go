package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Identify(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantProvider string
		rules        []Rule
		wantIndex    int
		wantFound    bool
	}{
		{
			name: "literal match",
			rules: []Rule{
				{Pattern: "Acme Services", Provider: "Acme Services"},
			},
			text:         "Invoice from Acme Services",
			wantProvider: "Acme Services",
			wantFound:    true,
		},
		{
			name: "case insensitive match",
			rules: []Rule{
				{Pattern: "acme", Provider: "Acme Services"},
			},
			text:         "INVOICE FROM ACME",
			wantProvider: "Acme Services",
			wantFound:    true,
		},
		{
			name: "regex match anywhere in text",
			rules: []Rule{
				{Pattern: `digital\s+ocean`, Provider: "DigitalOcean"},
			},
			text:         "Thanks for using Digital   Ocean this month",
			wantProvider: "DigitalOcean",
			wantFound:    true,
		},
		{
			name: "first inserted rule wins",
			rules: []Rule{
				{Pattern: "cloud", Provider: "First Cloud"},
				{Pattern: "cloud hosting", Provider: "Second Cloud"},
			},
			text:         "cloud hosting invoice",
			wantProvider: "First Cloud",
			wantIndex:    0,
			wantFound:    true,
		},
		{
			name: "later rule matches when earlier does not",
			rules: []Rule{
				{Pattern: "github", Provider: "GitHub"},
				{Pattern: "heroku", Provider: "Heroku"},
			},
			text:         "Heroku platform fees",
			wantProvider: "Heroku",
			wantIndex:    1,
			wantFound:    true,
		},
		{
			name: "no match",
			rules: []Rule{
				{Pattern: "github", Provider: "GitHub"},
			},
			text:      "Invoice from Acme",
			wantFound: false,
		},
		{
			name:      "empty rule set",
			text:      "anything",
			wantFound: false,
		},
		{
			name: "invalid pattern is skipped without breaking others",
			rules: []Rule{
				{Pattern: "(", Provider: "Broken"},
				{Pattern: "acme", Provider: "Acme"},
			},
			text:         "acme invoice (",
			wantProvider: "Acme",
			wantIndex:    1,
			wantFound:    true,
		},
		{
			name: "rule missing provider is skipped",
			rules: []Rule{
				{Pattern: "acme", Provider: ""},
				{Pattern: "acme", Provider: "Acme"},
			},
			text:         "acme",
			wantProvider: "Acme",
			wantIndex:    1,
			wantFound:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.rules, nil)

			match, found := m.Identify(tt.text)
			require.Equal(t, tt.wantFound, found)
			if !tt.wantFound {
				return
			}
			assert.Equal(t, tt.wantProvider, match.Rule.Provider)
			assert.Equal(t, tt.wantIndex, match.Index)
		})
	}
}

func TestMatcher_Counts(t *testing.T) {
	m := NewMatcher([]Rule{
		{Pattern: "ok", Provider: "OK"},
		{Pattern: "[", Provider: "Bad"},
		{Pattern: "", Provider: "Empty"},
	}, nil)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, m.Skipped())
}
