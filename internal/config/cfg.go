package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	EditorConfig struct {
		Placeholder     bool `yaml:"bullet_placeholder"`
		DefaultFontSize int  `yaml:"default_font_size" validate:"min=1"`
		MinFontSize     int  `yaml:"min_font_size" validate:"min=1,ltefield=DefaultFontSize"`
		MaxFontSize     int  `yaml:"max_font_size" validate:"gtefield=DefaultFontSize"`
	}

	JSONConfig struct {
		SingleStyle bool `yaml:"single_style"`
		Indent      bool `yaml:"indent"`
	}

	IonConfig struct {
		Text bool `yaml:"text"`
	}

	SqdocConfig struct {
		Author   string       `yaml:"author"`
		Compress bool         `yaml:"compress"`
		Encrypt  bool         `yaml:"encrypt"`
		Password SecretString `yaml:"password,omitempty" validate:"required_if=Encrypt true"`
	}

	AdaptersConfig struct {
		DefaultFormat string      `yaml:"default_format" validate:"required,oneof=json delta markdown xhtml sqdoc ion"`
		JSON          JSONConfig  `yaml:"json"`
		Ion           IonConfig   `yaml:"ion"`
		Sqdoc         SqdocConfig `yaml:"sqdoc"`
	}

	ConvertConfig struct {
		OutputNameTemplate    string `yaml:"output_name_template"`
		FileNameTransliterate bool   `yaml:"file_name_transliterate"`
	}

	StoreConfig struct {
		Path string `yaml:"path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Editor    EditorConfig   `yaml:"editor"`
		Adapters  AdaptersConfig `yaml:"adapters"`
		Convert   ConvertConfig  `yaml:"convert"`
		Store     StoreConfig    `yaml:"store"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// NOTE: must match yaml field name above
const OutputNameTemplateFieldName TemplateFieldName = "output_name_template"

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// only fields we defined are allowed, so no yaml.Unmarshal here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration expands the embedded template to get defaults, then
// superimposes the file at path (if any) and validates the result.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare returns the expanded configuration template.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
