package treelstm

import (
	"testing"

	"github.com/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	if !DefaultConf(testWords, testCategories).IsValid() {
		t.Errorf("Expected Default Config to be correct")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name  string
		alter func(*Config)
	}{
		{"no word dims", func(c *Config) { c.WordDims = 0 }},
		{"no cell dims", func(c *Config) { c.CellDims = 0 }},
		{"no category dims", func(c *Config) { c.CategoryDims = -1 }},
		{"dropout", func(c *Config) { c.Dropout = 1 }},
		{"narrow cell without encoder", func(c *Config) { c.Layers = 0; c.CellDims = 2 }},
		{"chars without encoder", func(c *Config) { c.Layers = 0; c.UseChars = true }},
		{"odd chars", func(c *Config) { c.UseChars = true; c.WordDims = 5 }},
		{"span features without encoder", func(c *Config) { c.Layers = -1; c.Recursive = false }},
		{"bad category", func(c *Config) { c.Categories = []string{"(NP"} }},
		{"composite category when composing", func(c *Config) { c.Compositional = true }},
	}
	for _, c := range cases {
		conf := smallConf(testCategories)
		c.alter(&conf)
		err := conf.Validate()
		if errors.Cause(err) != ErrConfiguration {
			t.Errorf("%s: expected a configuration error. Got %v", c.name, err)
		}
		if _, err := New(conf); errors.Cause(err) != ErrConfiguration {
			t.Errorf("%s: expected New to fail. Got %v", c.name, err)
		}
	}
}
