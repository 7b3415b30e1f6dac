package types

import (
	"errors"
	"io/ioutil"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	BioscopeDir  = "bioscope"
	ParsedDir    = "parsed"
	GeniaDir     = "genia"
	AttributeDir = "attributes"
	ImageDir     = "img"

	BioscopeExt = ".bioscope"
	ParsedExt   = ".parsed"
	GeniaExt    = ".genia"

	// sentence type filter meaning "every sentence"
	SentenceTypeAll = "ALL"

	DefaultAttributeTable = "attributes"
	DefaultDatabase       = "attributes.db"
)

var (
	ErrMissingWorkingDir  = errors.New("configuration: working_dir is required")
	ErrMissingCorpusFile  = errors.New("configuration: corpus_file is required")
	ErrInvalidTableName   = errors.New("configuration: export table name must be an identifier")
	ErrInvalidFilterRegex = errors.New("configuration: document_filter is not a valid regular expression")
	ErrMissingTarget      = errors.New("configuration: export target is required for a training file")
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type ExportConfig struct {
	Database     string   `yaml:"database" json:"database"`
	Table        string   `yaml:"table" json:"table"`
	TrainingFile string   `yaml:"training_file" json:"training_file"`
	Columns      []string `yaml:"columns" json:"columns"`
	Target       string   `yaml:"target" json:"target"`
	Predicted    string   `yaml:"predicted" json:"predicted"`
	SentenceType string   `yaml:"sentence_type" json:"sentence_type"`
}

type CorpusConfiguration struct {
	Name     string `json:"name"`
	FilePath string `json:"file_path"`

	WorkingDir string `yaml:"working_dir" json:"working_dir"`
	CorpusFile string `yaml:"corpus_file" json:"corpus_file"`

	// DocumentPrefix is prepended to every id read from the corpus file,
	// DocumentFilter restricts loading to the ids it matches.
	DocumentPrefix string `yaml:"document_prefix" json:"document_prefix"`
	DocumentFilter string `yaml:"document_filter" json:"document_filter"`

	UseHeuristics bool         `yaml:"use_heuristics" json:"use_heuristics"`
	Export        ExportConfig `yaml:"export" json:"export"`
}

func (cfg CorpusConfiguration) BioscopeFile(docID string) string {
	return path.Join(BioscopeDir, docID+BioscopeExt)
}

func (cfg CorpusConfiguration) ParsedFile(docID string) string {
	return path.Join(ParsedDir, docID+ParsedExt)
}

func (cfg CorpusConfiguration) GeniaFile(docID string, sentenceID string) string {
	return path.Join(GeniaDir, docID+"."+sentenceID+GeniaExt)
}

func (cfg CorpusConfiguration) DatabasePath() string {
	return path.Join(cfg.WorkingDir, cfg.Export.Database)
}

func (cfg CorpusConfiguration) Filter() (*regexp.Regexp, error) {
	re, err := regexp.Compile("^" + cfg.DocumentFilter)
	if err != nil {
		return nil, ErrInvalidFilterRegex
	}
	return re, nil
}

func (cfg *CorpusConfiguration) setDefaults() {
	if cfg.Export.Database == "" {
		cfg.Export.Database = DefaultDatabase
	}
	if cfg.Export.Table == "" {
		cfg.Export.Table = DefaultAttributeTable
	}
	if cfg.Export.SentenceType == "" {
		cfg.Export.SentenceType = SentenceTypeAll
	}
}

func (cfg CorpusConfiguration) Validate() error {
	if cfg.WorkingDir == "" {
		return ErrMissingWorkingDir
	}
	if cfg.CorpusFile == "" {
		return ErrMissingCorpusFile
	}
	if !identifierRe.MatchString(cfg.Export.Table) {
		return ErrInvalidTableName
	}
	if cfg.Export.TrainingFile != "" && cfg.Export.Target == "" {
		return ErrMissingTarget
	}
	if _, err := cfg.Filter(); err != nil {
		return err
	}
	return nil
}

func ParseConfiguration(buf []byte) (CorpusConfiguration, error) {
	var cfg CorpusConfiguration
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, cfg.Validate()
}

func LoadConfiguration(filePath string) (CorpusConfiguration, error) {
	buf, err := ioutil.ReadFile(filePath)
	if err != nil {
		return CorpusConfiguration{}, err
	}
	cfg, err := ParseConfiguration(buf)
	if err != nil {
		return cfg, err
	}
	_, fileName := path.Split(filePath)
	cfg.Name = strings.TrimSuffix(fileName, path.Ext(fileName))
	cfg.FilePath = filePath
	return cfg, nil
}
