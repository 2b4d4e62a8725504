package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typeshape/internal/typegraph"
)

func TestDefaultConfigMapping(t *testing.T) {
	m, err := DefaultConfig().Mapping()
	require.NoError(t, err)
	assert.Equal(t, typegraph.DefaultStringTypeMapping(), m)
}

func TestConfigMapping(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		active []typegraph.Kind
		date   typegraph.Kind
	}{
		{
			name:   "all kinds, no folding",
			cfg:    Config{},
			active: typegraph.TransformedStringKinds,
			date:   typegraph.KindDate,
		},
		{
			name:   "subset",
			cfg:    Config{StringTypes: []string{"uuid", "date"}},
			active: []typegraph.Kind{typegraph.KindDate, typegraph.KindUUID},
			date:   typegraph.KindDate,
		},
		{
			name:   "folding an active date",
			cfg:    Config{StringTypes: []string{"date"}, FoldDates: true},
			active: []typegraph.Kind{typegraph.KindDateTime},
			date:   typegraph.KindDateTime,
		},
		{
			name:   "folding leaves inactive dates plain",
			cfg:    Config{StringTypes: []string{"uri"}, FoldDates: true},
			active: []typegraph.Kind{typegraph.KindURI},
			date:   typegraph.KindString,
		},
		{
			name:   "empty list disables every kind",
			cfg:    Config{StringTypes: []string{}},
			active: nil,
			date:   typegraph.KindString,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.cfg.Mapping()
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.active, m.ActiveKinds())
			assert.Equal(t, tt.date, m.Resolve(typegraph.KindDate))
		})
	}
}

func TestParseConfig(t *testing.T) {
	t.Run("empty document keeps defaults", func(t *testing.T) {
		cfg, err := ParseConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("fields override defaults", func(t *testing.T) {
		cfg, err := ParseConfig([]byte("conflate_numbers: false\ncheck_constraints: true\nstring_types: [uuid]\n"))
		require.NoError(t, err)
		assert.False(t, cfg.ConflateNumbers)
		assert.True(t, cfg.CheckConstraints)
		assert.True(t, cfg.CombineClasses)
		assert.Equal(t, []string{"uuid"}, cfg.StringTypes)
	})

	errors := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "conflate_number: true\n", "field conflate_number not found"},
		{"unknown kind", "string_types: [color]\n", "unknown type kind"},
		{"not a string kind", "string_types: [integer]\n", "not a transformed string kind"},
		{"wrong type", "combine_classes: [1]\n", "failed to parse YAML"},
	}
	for _, tt := range errors {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typeshape.yaml")
	require.NoError(t, os.WriteFile(path, []byte("leave_full_objects: true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.LeaveFullObjects)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestConfigDescribe(t *testing.T) {
	d := Config{StringTypes: []string{"uuid"}}.Describe()
	assert.Equal(t, false, d["conflate_numbers"])
	assert.Equal(t, []string{"uuid"}, d["string_types"])

	_, ok := DefaultConfig().Describe()["string_types"]
	assert.False(t, ok)
}
