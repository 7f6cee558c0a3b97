package dlp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactorMasksIdentifiers(t *testing.T) {
	redactor, err := NewRedactor(DefaultRules())
	require.NoError(t, err)

	masked, types := redactor.Redact("Call (555) 123-4567 or mail john@example.com, SSN 123-45-6789")
	assert.Equal(t, "Call (***) ***-**** or mail ***@***, SSN ***-**-****", masked)
	assert.Equal(t, []string{"email", "phone", "ssn"}, types)

	clean, types := redactor.Redact("Headache since Tuesday, worse in the evening")
	assert.Equal(t, "Headache since Tuesday, worse in the evening", clean)
	assert.Empty(t, types)
}

func TestNilRedactorIsPassThrough(t *testing.T) {
	var redactor *Redactor
	text, types := redactor.Redact("born 01/02/1990")
	assert.Equal(t, "born 01/02/1990", text)
	assert.Nil(t, types)
}

func TestLoadRules(t *testing.T) {
	cfg, err := LoadRules("")
	require.NoError(t, err)
	assert.Len(t, cfg.Rules, 4)

	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - name: MRN
    type: mrn
    pattern: 'MRN-\d{6}'
    mask: MRN-******
    enabled: true
  - name: Off
    type: off
    pattern: 'x'
    mask: y
    enabled: false
`), 0o600))
	cfg, err = LoadRules(path)
	require.NoError(t, err)
	redactor, err := NewRedactor(cfg)
	require.NoError(t, err)
	masked, types := redactor.Redact("MRN-123456 x")
	assert.Equal(t, "MRN-****** x", masked)
	assert.Equal(t, []string{"mrn"}, types)

	require.NoError(t, os.WriteFile(path, []byte("rules: []\n"), 0o600))
	_, err = LoadRules(path)
	assert.Error(t, err)

	_, err = NewRedactor(RulesConfig{Rules: []Rule{{Name: "bad", Pattern: "(", Enabled: true}}})
	assert.Error(t, err)
}
