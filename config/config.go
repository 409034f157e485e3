// Package config loads simulation settings from YAML files.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/alan-christopher/qkdsim/qkd"
	"github.com/alan-christopher/qkdsim/qkd/photon"
)

// ErrNoConfigFile is returned by Load when the named file does not exist.
var ErrNoConfigFile = errors.New("cannot find config file")

// Config is the file form of a simulation setup. Omitted fields keep the
// values from Default.
type Config struct {
	Protocol           string  `yaml:"protocol"`
	Qubits             int     `yaml:"qubits"`
	Runs               int     `yaml:"runs"`
	NoiseModel         string  `yaml:"noiseModel"`
	RectilinearPercent float64 `yaml:"rectilinearPercent"`
	EavesdropPercent   float64 `yaml:"eavesdropPercent"`
	QBERPercent        float64 `yaml:"qberPercent"`

	Seed             int64   `yaml:"seed"`
	Parallelism      int     `yaml:"parallelism"`
	SampleProportion float64 `yaml:"sampleProportion"`
}

// Default returns the configuration the simulator starts from.
func Default() Config {
	return Config{
		Protocol:           qkd.BB84.String(),
		Qubits:             200,
		Runs:               1,
		NoiseModel:         photon.SimpleQBER.String(),
		RectilinearPercent: 50,
		EavesdropPercent:   20,
		QBERPercent:        2,
		Seed:               1,
		Parallelism:        qkd.DefaultParallelism,
		SampleProportion:   qkd.DefaultSampleProportion,
	}
}

// Load reads the configuration at path over Default. Keys the Config does not
// know are tolerated but reported in warnings.
func Load(path string) (cfg *Config, warnings string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", errors.Wrap(ErrNoConfigFile, path)
		}
		return nil, "", errors.Wrapf(err, "reading config file %s", path)
	}
	cfg, err = Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, "", errors.Wrapf(err, "in config file %s", path)
	}

	// Parse again strictly to surface unknown keys.
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var unused Config
	if err := dec.Decode(&unused); err != nil && err != io.EOF {
		warnings = err.Error()
	}
	return cfg, warnings, nil
}

// Parse decodes a YAML configuration from r over Default. An empty document
// yields Default.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "error parsing YAML")
	}
	return &cfg, nil
}

// Params converts c to validated simulation parameters.
func (c *Config) Params() (qkd.Params, error) {
	protocol, err := qkd.ParseProtocol(c.Protocol)
	if err != nil {
		return qkd.Params{}, errors.Wrap(err, "protocol")
	}
	model, err := photon.ParseNoiseModel(c.NoiseModel)
	if err != nil {
		return qkd.Params{}, errors.Wrap(err, "noiseModel")
	}
	p := qkd.Params{
		Protocol:                protocol,
		QubitCount:              c.Qubits,
		RunCount:                c.Runs,
		NoiseModel:              model,
		RectilinearBasisPercent: c.RectilinearPercent,
		EavesdropPercent:        c.EavesdropPercent,
		QBERPercent:             c.QBERPercent,
	}
	if err := p.Validate(); err != nil {
		return qkd.Params{}, err
	}
	return p, nil
}
